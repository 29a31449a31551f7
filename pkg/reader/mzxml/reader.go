// Package mzxml provides a streaming reader for mzXML raw data files
package mzxml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/filter"
)

// ErrUnsupported is returned for peak encodings the reader does not decode
var ErrUnsupported = errors.New("unsupported mzXML encoding")

// Reader provides streaming access to the scans of an mzXML file.
// Scans are returned when their closing tag is read, so nested MS2 scans
// come before their MS1 parent.
type Reader struct {
	dec         *xml.Decoder
	open        []*core.Spectrum
	currentSpec *core.Spectrum
	source      string
	err         error
}

// peaksElement is the <peaks> payload of a scan
type peaksElement struct {
	Precision       int    `xml:"precision,attr"`
	ByteOrder       string `xml:"byteOrder,attr"`
	ContentType     string `xml:"contentType,attr"`
	PairOrder       string `xml:"pairOrder,attr"`
	CompressionType string `xml:"compressionType,attr"`
	Data            string `xml:",chardata"`
}

// NewReader creates a new mzXML reader. source is recorded on every spectrum.
func NewReader(r io.Reader, source string) *Reader {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	return &Reader{
		dec:    d,
		source: source,
	}
}

// Next advances to the next scan. Returns false when no more scans or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.err != nil {
		return false
	}

	spec, err := r.readScan()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current scan
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadMS1 loads every MS1 scan in file order with peaks sorted by m/z
func ReadMS1(r io.Reader, source string) ([]*core.Spectrum, error) {
	return ReadAll(r, source, &filter.Config{MSLevel: 1})
}

// ReadAll loads the scans that pass cfg in file order
func ReadAll(r io.Reader, source string, cfg *filter.Config) ([]*core.Spectrum, error) {
	reader := NewReader(r, source)

	var spectra []*core.Spectrum
	for reader.Next() {
		spec := reader.Spectrum()
		if err := cfg.Apply(spec); err != nil {
			if errors.Is(err, filter.ErrSkipped) {
				continue
			}
			return nil, err
		}
		spectra = append(spectra, spec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", source, err)
	}

	return spectra, nil
}

func (r *Reader) readScan() (*core.Spectrum, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF && len(r.open) > 0 {
				return nil, fmt.Errorf("unexpected end of file inside scan %s", r.open[len(r.open)-1].Name())
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "scan":
				spec, err := r.parseScan(t)
				if err != nil {
					return nil, err
				}
				r.open = append(r.open, spec)

			case "peaks":
				var p peaksElement
				if err := r.dec.DecodeElement(&p, &t); err != nil {
					return nil, fmt.Errorf("failed to decode peaks: %w", err)
				}
				if len(r.open) == 0 {
					continue
				}
				spec := r.open[len(r.open)-1]
				peaks, err := decodePeaks(&p)
				if err != nil {
					return nil, fmt.Errorf("scan %s: %w", spec.ScanLabel(), err)
				}
				spec.Peaks = peaks
			}

		case xml.EndElement:
			if t.Name.Local == "scan" && len(r.open) > 0 {
				spec := r.open[len(r.open)-1]
				r.open = r.open[:len(r.open)-1]
				return spec, nil
			}
		}
	}
}

// parseScan reads the attributes of a <scan> element
func (r *Reader) parseScan(t xml.StartElement) (*core.Spectrum, error) {
	spec := &core.Spectrum{
		MSLevel:    1,
		SourceFile: r.source,
	}

	for _, attr := range t.Attr {
		switch attr.Name.Local {
		case "num":
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid scan number '%s': %w", attr.Value, err)
			}
			spec.ScanNumber = n
			spec.NativeID = "scan=" + attr.Value

		case "msLevel":
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid msLevel '%s': %w", attr.Value, err)
			}
			spec.MSLevel = n

		case "retentionTime":
			rt, err := ParseDuration(attr.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid retention time '%s': %w", attr.Value, err)
			}
			spec.RetentionTime = rt
		}
	}

	return spec, nil
}

// decodePeaks decodes base64 m/z-intensity pairs
func decodePeaks(p *peaksElement) ([]core.Peak, error) {
	content := p.ContentType
	if content == "" {
		content = p.PairOrder
	}
	if content != "" && content != "m/z-int" {
		return nil, fmt.Errorf("%w: content type %s", ErrUnsupported, content)
	}

	raw := strings.Join(strings.Fields(p.Data), "")
	if raw == "" {
		return []core.Peak{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 peak data: %w", err)
	}

	switch p.CompressionType {
	case "", "none":
	case "zlib":
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid zlib peak data: %w", err)
		}
		defer z.Close()
		data, err = io.ReadAll(z)
		if err != nil {
			return nil, fmt.Errorf("invalid zlib peak data: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: compression %s", ErrUnsupported, p.CompressionType)
	}

	var order binary.ByteOrder = binary.BigEndian
	switch p.ByteOrder {
	case "", "network", "big":
	case "little":
		order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("%w: byte order %s", ErrUnsupported, p.ByteOrder)
	}

	width := 4
	switch p.Precision {
	case 0, 32:
	case 64:
		width = 8
	default:
		return nil, fmt.Errorf("%w: precision %d", ErrUnsupported, p.Precision)
	}

	if len(data)%(2*width) != 0 {
		return nil, fmt.Errorf("peak data length %d is not a multiple of %d", len(data), 2*width)
	}

	values := make([]float64, len(data)/width)
	for i := range values {
		if width == 8 {
			values[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		} else {
			values[i] = float64(math.Float32frombits(order.Uint32(data[i*4:])))
		}
	}

	peaks := make([]core.Peak, len(values)/2)
	for i := range peaks {
		peaks[i] = core.Peak{MZ: values[2*i], Intensity: values[2*i+1]}
	}
	return peaks, nil
}

// ParseDuration converts an xs:duration such as "PT1234.5S" or "PT20M3.5S"
// to seconds.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "PT")
	if !ok {
		// Some writers emit a bare number of seconds
		return strconv.ParseFloat(s, 64)
	}
	if rest == "" {
		return 0, fmt.Errorf("empty duration %q", s)
	}

	seconds := 0.0
	for rest != "" {
		i := strings.IndexAny(rest, "HMS")
		if i <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		v, err := strconv.ParseFloat(rest[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		switch rest[i] {
		case 'H':
			seconds += v * 3600
		case 'M':
			seconds += v * 60
		case 'S':
			seconds += v
		}
		rest = rest[i+1:]
	}
	return seconds, nil
}
