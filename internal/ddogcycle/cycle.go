// ddogcycle sends amplitude cycle metrics to Data Dog.
// If the api key is empty the metrics are logged instead.
package ddogcycle

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/GeoNet/kclass/internal/platform/metrics"
	"github.com/pkg/errors"
)

var dogURL = "https://api.datadoghq.com/api/v1/series"

var client = &http.Client{Timeout: 30 * time.Second}

type point [2]float32

// metric is for sending metrics to datadog.
type metric struct {
	Metric string  `json:"metric"`
	Points []point `json:"points"`
	Type   string  `json:"type"`
	Host   string  `json:"host"`
}

type series struct {
	Series []metric `json:"series"`
}

// Start sends the cycle counters and durations every minute.
func Start(apiKey, hostName, appName string) {
	if apiKey == "" {
		log.Print("empty DDOG_API_KEY cycle metrics will be logged")
	}

	go func() {
		var c metrics.CycleCounters

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			metrics.ReadCycleCounters(&c)
			d := metrics.ReadDurations()

			if apiKey == "" {
				log.Printf("%s %s %+v %+v", hostName, appName, c, d)
				continue
			}

			if err := dog(apiKey, toSeries(hostName, appName, c, d)); err != nil {
				log.Printf("error sending cycle metrics to datadog for %s %s: %s", hostName, appName, err)
			}
		}
	}()
}

func toSeries(hostName, appName string, c metrics.CycleCounters, d []metrics.DurationStats) series {
	now := float32(c.At.Unix())

	count := func(name string, v uint64) metric {
		return metric{
			Metric: appName + ".cycle." + name,
			Points: []point{{now, float32(v)}},
			Type:   "count",
			Host:   hostName,
		}
	}

	s := series{Series: []metric{
		count("started", c.Started),
		count("finished", c.Finished),
		count("errored", c.Errored),
		count("expired", c.Expired),
		count("magnitudes", c.Magnitudes),
		count("rejected", c.Rejected),
	}}

	for _, v := range d {
		s.Series = append(s.Series,
			metric{
				Metric: appName + ".timer." + v.ID + ".95percentile",
				Points: []point{{now, float32(v.Percentile95.Seconds())}},
				Type:   "gauge",
				Host:   hostName,
			},
			metric{
				Metric: appName + ".timer." + v.ID + ".count",
				Points: []point{{now, float32(v.Count)}},
				Type:   "gauge",
				Host:   hostName,
			})
	}

	return s
}

func dog(apiKey string, s series) error {
	b, err := json.Marshal(&s)
	if err != nil {
		return err
	}

	var res *http.Response

	for tries := 0; tries < 3; tries++ {
		if tries > 0 {
			time.Sleep(time.Second << uint(tries))
		}

		var req *http.Request

		req, err = http.NewRequest("POST", dogURL, bytes.NewReader(b))
		if err != nil {
			return err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("DD-API-KEY", apiKey)

		res, err = client.Do(req)
		if err != nil {
			// connection error, sleep and try again
			continue
		}

		res.Body.Close()

		if res.StatusCode != http.StatusAccepted {
			return errors.Errorf("non 202 code from datadog: %d", res.StatusCode)
		}

		return nil
	}

	return err
}
