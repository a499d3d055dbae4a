/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the registry
server, tracking HTTP requests, registry size, committed mutations, snapshot
writes and event stream connections.

# Features

- HTTP request metrics (latency, throughput, size) labelled by route template
- Registry gauges (modules, versions, contexts, listers, stakes)
- Committed mutation counters by event kind
- Snapshot persistence counters
- WebSocket connection metrics
- Uptime

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))

	registry.Subscribe(func(e registry.Event) {
		metrics.RecordEvent(string(e.Kind))
	})

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
