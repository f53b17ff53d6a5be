// Package notify hands qualifying cluster signals to the external
// notification service. Delivery is someone else's job: enqueue failures are
// logged by callers and never fail a pipeline run.
package notify

import (
	"context"
	"time"
)

// ClusterNotification is the payload pushed onto the queue for each
// qualifying cluster.
type ClusterNotification struct {
	ClusterID    uint64    `json:"cluster_id"`
	IssuerID     string    `json:"issuer_id"`
	Date         time.Time `json:"date"`
	Strength     float64   `json:"strength"`
	InsiderCount int       `json:"insider_count"`
	IsNew        bool      `json:"is_new"`
}

type Queue interface {
	EnqueueClusterNotification(ctx context.Context, n ClusterNotification) error
}

// NoopQueue drops notifications. Used when the queue is disabled in config.
type NoopQueue struct{}

func (NoopQueue) EnqueueClusterNotification(ctx context.Context, n ClusterNotification) error {
	return nil
}
