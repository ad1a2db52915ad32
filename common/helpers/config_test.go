package helpers

import (
	"io/ioutil"
	"os"
	"path"
	"testing"
)

func TestReadConfig(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "configtest")
	defer os.RemoveAll(tempDir)

	configContent := `redis:
  address: "localhost:6379"
  dbNum: 2
dirs:
  logs: "/var/log/desto"
  scripts: "/opt/desto/scripts"
chainPolicy: "stop_on_error"
reconcile:
  intervalSeconds: 30
  scheduleGraceSeconds: 120
tail:
  pollMillis: 250
  debounceMillis: 2000
notifications:
  webhookUrl: "http://localhost:9999/notify"
  timeoutSeconds: 5
`
	configPath := path.Join(tempDir, "serverconfig.yaml")
	writeErr := ioutil.WriteFile(configPath, []byte(configContent), 0644)
	if writeErr != nil {
		t.Fatal("could not write test config file: ", writeErr)
	}

	conf, readErr := ReadConfig(configPath)
	if readErr != nil {
		t.Error("ReadConfig failed unexpectedly: ", readErr)
	} else {
		if conf.Redis.Address != "localhost:6379" {
			t.Errorf("wrong redis address, expected localhost:6379 got '%s'", conf.Redis.Address)
		}
		if conf.Redis.DBNum != 2 {
			t.Errorf("wrong redis db number, expected 2 got %d", conf.Redis.DBNum)
		}
		if conf.Dirs.Logs != "/var/log/desto" {
			t.Errorf("wrong logs dir, got '%s'", conf.Dirs.Logs)
		}
		if conf.ChainPolicy != "stop_on_error" {
			t.Errorf("wrong chain policy, got '%s'", conf.ChainPolicy)
		}
		if conf.Reconcile.ScheduleGraceSeconds != 120 {
			t.Errorf("wrong schedule grace, got %d", conf.Reconcile.ScheduleGraceSeconds)
		}
		if conf.Notifications.WebhookUrl != "http://localhost:9999/notify" {
			t.Errorf("wrong webhook url, got '%s'", conf.Notifications.WebhookUrl)
		}
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	_, readErr := ReadConfig("/path/that/does/not/exist.yaml")
	if readErr == nil {
		t.Error("expected an error for a nonexistent config file, got nil")
	}
}
