// Package prometheus exports sketchtree operation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := sketchprom.NewCollector(reg, "sketchtree")
//	if err != nil {
//	    return err
//	}
//	tree, err := sketchtree.LoadIndex(ctx, path, sketchtree.WithMetricsCollector(mc))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus
