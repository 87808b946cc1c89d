// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, command log stores) from configuration.
// A module is described by a type string and a map of raw settings that the
// factory decodes into a typed struct with Decode.
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c.URL), nil
//	})
package factory
