package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           ProudProfit Dispatch API
// @version         0.1.0
// @description     Signal ingestion, alert rules, smart timing, and notification delivery.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
