package handlers

import (
	"context"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/config"
	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/sirupsen/logrus"
)

const logRetentionDays = 30

// Telemetry is the part of the LiveU client the status API reads
type Telemetry interface {
	GetInterfaces(ctx context.Context, unitID string) ([]liveu.Interface, error)
	GetBattery(ctx context.Context, unitID string) (*liveu.Battery, error)
	GetVideo(ctx context.Context, unitID string) (*liveu.Video, error)
}

type App struct {
	Config    *config.Config
	DB        *database.DB
	Logger    *logrus.Logger
	Telemetry Telemetry
	UnitID    string
}

// StartCleanupJob deletes old activity log entries every hour until stop
// is closed
func (app *App) StartCleanupJob(stop <-chan struct{}) {
	app.Logger.Info("Starting log cleanup job (runs every hour)")

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.cleanupOldLogs()

	for {
		select {
		case <-ticker.C:
			app.cleanupOldLogs()
		case <-stop:
			app.Logger.Info("Stopping log cleanup job")
			return
		}
	}
}

func (app *App) cleanupOldLogs() {
	deletedCount, err := app.DB.DeleteOldLogs(logRetentionDays)
	if err != nil {
		app.Logger.Errorf("Failed to delete old logs: %v", err)
		return
	}

	if deletedCount > 0 {
		app.Logger.Infof("Deleted %d old log entries (>%d days)", deletedCount, logRetentionDays)
	}
}
