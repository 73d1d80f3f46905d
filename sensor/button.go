package sensor

import (
	"context"

	"github.com/swoga/router-bridge/api"
	"go.uber.org/zap"
)

// RebootButton restarts one router through its session client.
type RebootButton struct {
	id     string
	name   string
	client api.Client
	log    *zap.Logger
}

var _ Rebootable = (*RebootButton)(nil)

func NewRebootButton(router, title string, client api.Client, log *zap.Logger) *RebootButton {
	if log == nil {
		log = zap.NewNop()
	}
	return &RebootButton{
		id:     SafeID(router + "_reboot"),
		name:   title + " Reboot",
		client: client,
		log:    log.With(zap.String("router", router)),
	}
}

func (b *RebootButton) ID() string   { return b.id }
func (b *RebootButton) Name() string { return b.name }

// Reboot is fire and forget: the outcome is only logged.
func (b *RebootButton) Reboot(ctx context.Context) {
	if !b.client.Reboot(ctx) {
		b.log.Warn("reboot command failed")
		return
	}
	b.log.Info("reboot command sent")
}
