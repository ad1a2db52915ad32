package main

import (
	"log"
	"net/http"

	"github.com/desto-project/desto/common/helpers"
	"github.com/go-redis/redis/v7"
)

type HealthcheckHandler struct {
	redisClient *redis.Client
}

func (h HealthcheckHandler) ServeHTTP(w http.ResponseWriter, request *http.Request) {
	if h.redisClient == nil {
		//running on the in-memory mirror only, still serving
		helpers.WriteJsonContent(helpers.GenericErrorResponse{Status: "degraded", Detail: "history store is not connected"}, w, 200)
		return
	}

	_, err := h.redisClient.Ping().Result()

	if err == nil {
		w.WriteHeader(200)
	} else {
		log.Printf("HEALTHCHECK FAILED: %s connecting to Redis", err)
		response := helpers.GenericErrorResponse{
			Status: "error",
			Detail: "could not contact redis db",
		}
		helpers.WriteJsonContent(response, w, 500)
	}
}
