package api

import (
	_ "github.com/Kamar-Folarin/propsync/docs"
)

// @title Propsync Local Sync API
// @version 1.0
// @description Local API over the offline mutation queue and sync engine
// @host localhost:8080
// @BasePath /api/v1

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// @example record id cannot be empty
	Error string `json:"error" example:"Failed to process request"`
}

// EnqueueResponse is returned when a raw intent is queued
// @Description Id of the queued intent
// @swagger:model EnqueueResponse
type EnqueueResponse struct {
	// Queue item id
	// @example 0b0f3c52-8a3e-4c1e-9d7c-51f8c2a1d9e4
	ID string `json:"id" example:"0b0f3c52-8a3e-4c1e-9d7c-51f8c2a1d9e4"`
}

// PendingCountResponse reports how many queued mutations are eligible now
// @Description Pending mutation count
// @swagger:model PendingCountResponse
type PendingCountResponse struct {
	// Pending mutations eligible for the next pass
	// @example 3
	Pending int `json:"pending" example:"3"`
}
