package service_test

import (
	"elarocks/config"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/extractor"
	"elarocks/internal/kafka"
	"elarocks/internal/kvstore"
	"elarocks/internal/metrics"
	"elarocks/internal/runstate"
	"elarocks/internal/schema"
	"elarocks/internal/service"
)

// newExtractionService converts typed-nil fakes to nil interfaces.
func newExtractionService(cfg *config.Config, source elasticsearch.DocumentSource, publisher *fakePublisher, loader *kvstore.Loader, stateMgr runstate.Manager) service.ExtractionService {
	return newExtractionServiceWithMetrics(cfg, source, publisher, loader, stateMgr, nil)
}

func newExtractionServiceWithMetrics(cfg *config.Config, source elasticsearch.DocumentSource, publisher *fakePublisher, loader *kvstore.Loader, stateMgr runstate.Manager, m *metrics.RunMetrics) service.ExtractionService {
	var pub kafka.RecordPublisher
	if publisher != nil {
		pub = publisher
	}
	return service.NewExtractionService(cfg, schema.NewSysmonRegistry(), source, extractor.NewPipeline(), pub, loader, stateMgr, m)
}
