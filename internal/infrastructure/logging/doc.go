// Package logging builds the registry's zap logger.
//
// Production logs are sampled JSON carrying service=module-registry;
// development logs are colored console lines. Each part of the server takes
// a child from Component, which adds a "component" field.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	log := logger.Component("persister")
//	log.Info("snapshot saved", zap.Int("bytes", n))
package logging
