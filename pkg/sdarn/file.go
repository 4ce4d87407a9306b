package sdarn

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/openradar/darnio/pkg/dmap"
	"github.com/openradar/darnio/pkg/models"
)

// DecodeValidated decodes every record in buf and validates each against
// the format as it is produced. The first violation aborts the pass.
func DecodeValidated(buf []byte, format *Format, opts ...dmap.Option) ([]*models.Record, error) {
	recs, err := dmap.DecodeAll(buf, opts...)
	if err != nil {
		return nil, err
	}
	for n, rec := range recs {
		if err := format.Validate(rec, n); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("component", "sdarn").Str("format", format.Name).
		Int("records", len(recs)).Msg("decoded and validated")
	return recs, nil
}

// EncodeValidated validates every record against the format, then
// serializes them in order. Nothing is written if any record fails.
func EncodeValidated(recs []*models.Record, format *Format) ([]byte, error) {
	for n, rec := range recs {
		if err := format.Validate(rec, n); err != nil {
			return nil, err
		}
	}
	return dmap.EncodeAll(recs)
}

// ReadFile reads and validates a whole file, unwrapping any recognized
// compression first.
func ReadFile(path string, format *Format, opts ...dmap.Option) ([]*models.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	buf, err := dmap.Decompress(raw)
	if err != nil {
		return nil, err
	}
	return DecodeValidated(buf, format, opts...)
}

// WriteFile validates and writes records to path with the chosen
// compression.
func WriteFile(path string, recs []*models.Record, format *Format, comp dmap.Compression) error {
	buf, err := EncodeValidated(recs, format)
	if err != nil {
		return err
	}
	out, err := dmap.Compress(buf, comp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
