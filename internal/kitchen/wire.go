package kitchen

import (
	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/config"
	"expo/internal/dispatch"
	"expo/internal/notify"
	"expo/internal/snapshot"
	"expo/internal/upstream"
)

// Module bundles the kitchen view: its snapshot, the sync service feeding it
// and the controller serving it.
type Module struct {
	Service    *Service
	Controller *Controller
	Store      *snapshot.Store
}

func NewModule(ch *channel.Client, api *upstream.Client, notices *notify.Center, cfg *config.Config, logger *zap.Logger) *Module {
	store := snapshot.New()
	service := NewService(ch, api, store, notices, cfg.Channel.KitchenRoom, logger)
	dispatcher := dispatch.New(api, ch, store, notices, logger)
	controller := NewController(service, dispatcher, notices, logger)

	return &Module{
		Service:    service,
		Controller: controller,
		Store:      store,
	}
}
