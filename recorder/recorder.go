package recorder

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultMeasurement = "scenic_object"
const writeTimeout = 3 * time.Second

// Change is one observed device state change.
type Change struct {
	Object  string
	Address string
	Kind    string
	Level   int
	At      time.Time
}

// Influx writes every state change as a point, so a show's pin history
// can be replayed from the bucket.
type Influx struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	client   influxdb2.Client
	writeApi api.WriteAPIBlocking
}

func (in *Influx) Open() error {
	if len(in.Host) == 0 || len(in.Bucket) == 0 {
		return errors.New("influx recorder needs Host and Bucket")
	}
	in.client = influxdb2.NewClient(in.Host, in.Token)
	in.writeApi = in.client.WriteAPIBlocking(in.Organization, in.Bucket)

	return nil
}

func (in *Influx) measurement() string {
	if len(in.Measurement) > 0 {
		return in.Measurement
	}
	return defaultMeasurement
}

func (in *Influx) Point(change Change) *write.Point {
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	return influxdb2.NewPoint(in.measurement(),
		map[string]string{
			"object":  change.Object,
			"address": change.Address,
			"kind":    change.Kind,
		},
		map[string]interface{}{
			"level": change.Level,
		},
		at)
}

func (in *Influx) Record(ctx context.Context, changes ...Change) error {
	if in.writeApi == nil {
		return errors.New("influx recorder not open")
	}
	if len(changes) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(changes))
	for _, change := range changes {
		points = append(points, in.Point(change))
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := in.writeApi.WritePoint(ctx, points...)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d points to influx bucket %s", len(points), in.Bucket)
	}
	return nil
}

func (in *Influx) Close() error {
	if in.client != nil {
		in.client.Close()
	}
	return nil
}
