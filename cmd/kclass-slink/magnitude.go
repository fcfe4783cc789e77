package main

import (
	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/GeoNet/kclass/internal/station"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// http://www.postgresql.org/docs/9.4/static/errcodes-appendix.html
const (
	errorUniqueViolation pq.ErrorCode = "23505"
)

// saveMagnitude saves m to the DB replacing any earlier magnitude for the
// same event and station.  Events are updated so there can be races between
// cycles for the same event which are handled.
func (a *app) saveMagnitude(m station.Magnitude) error {
	args := []interface{}{
		m.PublicID, m.Network, m.Station, m.Location, magnitude.Type,
		m.Estimate.Value, m.Amplitude.Value.Value, m.Amplitude.Time.Reference,
		m.Amplitude.Time.Begin, m.Amplitude.Time.End, m.Distance, m.Depth,
	}

	_, err := a.db.Exec(`INSERT INTO kclass.magnitude (PublicID, Network, Station, Location, Type,
	Magnitude, Amplitude, AmplitudeTime, AmplitudeBegin, AmplitudeEnd, Distance, Depth)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, args...)
	if err == nil {
		return nil
	}

	if u, ok := err.(*pq.Error); !ok || u.Code != errorUniqueViolation {
		return err
	}

	n, err := a.db.Exec(`UPDATE kclass.magnitude SET Type = $5, Magnitude = $6, Amplitude = $7,
	AmplitudeTime = $8, AmplitudeBegin = $9, AmplitudeEnd = $10, Distance = $11, Depth = $12
	WHERE PublicID = $1 AND Network = $2 AND Station = $3 AND Location = $4`, args...)
	if err != nil {
		return err
	}

	i, err := n.RowsAffected()
	if err != nil {
		return err
	}

	if i == 1 {
		return nil
	}

	return errors.Errorf("affected %d rows saving magnitude %s %s.%s.%s", i, m.PublicID, m.Network, m.Station, m.Location)
}
