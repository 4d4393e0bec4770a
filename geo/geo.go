package geo

import (
	"net"

	"stub-router/model"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
)

// Placeholder is returned for unresolvable or missing IPs so downstream
// analytics never observe an empty location.
var Placeholder = model.Geo{City: "Userland", Region: "CA", Country: "US"}

// Resolver answers IP lookups from a MaxMind city database that is loaded
// once at startup and held read-only for the life of the process.
type Resolver struct {
	reader *geoip2.Reader
}

// Open loads the city database at path. An empty path yields a resolver
// that always answers with the placeholder, which keeps development and
// test setups free of database files.
func Open(path string) (*Resolver, error) {
	if path == "" {
		log.Warn().Msg("No geo database configured, all lookups resolve to the placeholder location")
		return &Resolver{}, nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("Geo database loaded")
	return &Resolver{reader: reader}, nil
}

// Lookup resolves ip to a location. It never fails: misses fall back field
// by field and finally to the placeholder.
func (r *Resolver) Lookup(ip string) model.Geo {
	if r.reader == nil || ip == "" {
		return Placeholder
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Placeholder
	}

	record, err := r.reader.City(parsed)
	if err != nil || record == nil {
		return Placeholder
	}

	countryName := record.Country.Names["en"]

	city := record.City.Names["en"]
	if city == "" {
		city = countryName
	}
	if city == "" {
		city = "Unknown"
	}

	region := ""
	if len(record.Subdivisions) > 0 {
		region = record.Subdivisions[0].IsoCode
	}
	if region == "" {
		region = countryName
	}
	if region == "" {
		region = "Unknown"
	}

	country := record.Country.IsoCode
	if country == "" {
		country = "Unknown"
	}

	return model.Geo{City: city, Region: region, Country: country}
}

// Close releases the database handle.
func (r *Resolver) Close() {
	if r.reader != nil {
		r.reader.Close()
	}
}
