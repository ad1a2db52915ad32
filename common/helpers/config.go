package helpers

import (
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"log"
)

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DBNum    int    `yaml:"dbNum"`
}

type DirsConfig struct {
	Logs    string `yaml:"logs"`
	Scripts string `yaml:"scripts"`
}

type ReconcileConfig struct {
	IntervalSeconds      int `yaml:"intervalSeconds"`
	ScheduleGraceSeconds int `yaml:"scheduleGraceSeconds"`
}

type TailConfig struct {
	PollMillis     int `yaml:"pollMillis"`
	DebounceMillis int `yaml:"debounceMillis"`
}

type NotificationsConfig struct {
	WebhookUrl     string `yaml:"webhookUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type Config struct {
	Redis         RedisConfig         `yaml:"redis"`
	Dirs          DirsConfig          `yaml:"dirs"`
	ChainPolicy   string              `yaml:"chainPolicy"` //either "stop_on_error" or "run_regardless"
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Tail          TailConfig          `yaml:"tail"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

func ReadConfig(configFile string) (*Config, error) {
	configBytes, readErr := ioutil.ReadFile(configFile)
	if readErr != nil {
		log.Printf("Could not read config from '%s': %s\n", configFile, readErr)
		return nil, readErr
	}

	var conf Config

	err := yaml.Unmarshal(configBytes, &conf)
	if err != nil {
		log.Printf("Could not understand config from '%s': %s\n", configFile, err)
		return nil, err
	}
	return &conf, nil
}
