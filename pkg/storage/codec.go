package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/vjranagit/drought/pkg/table"
)

// Codec serializes tables column by column. Each column is XOR encoded
// against the previous cell and compressed with zstd.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec. level ranges from 1 (fastest) to 4 (best).
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

type tablePayload struct {
	Version int      `json:"v"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
	Data    [][]byte `json:"data"`
}

const payloadVersion = 1

// Encode serializes t
func (c *Codec) Encode(t *table.Table) ([]byte, error) {
	payload := tablePayload{
		Version: payloadVersion,
		Columns: t.Columns(),
		Rows:    t.Len(),
	}
	for _, col := range payload.Columns {
		values, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		data, err := c.CompressValues(values)
		if err != nil {
			return nil, fmt.Errorf("failed to compress column %s: %w", col, err)
		}
		payload.Data = append(payload.Data, data)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return out, nil
}

// Decode restores a table written by Encode
func (c *Codec) Decode(data []byte) (*table.Table, error) {
	var payload tablePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported payload version %d", payload.Version)
	}
	if len(payload.Data) != len(payload.Columns) {
		return nil, fmt.Errorf("payload has %d columns but %d data blocks", len(payload.Columns), len(payload.Data))
	}

	columns := make([][]float64, len(payload.Columns))
	for i, block := range payload.Data {
		values, err := c.DecompressValues(block, payload.Rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress column %s: %w", payload.Columns[i], err)
		}
		columns[i] = values
	}

	b := table.NewBuilder(payload.Columns...)
	row := make([]float64, len(columns))
	for r := 0; r < payload.Rows; r++ {
		for i := range columns {
			row[i] = columns[i][r]
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// CompressValues compresses float64 values using XOR encoding + zstd
func (c *Codec) CompressValues(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	var prevBits uint64
	for _, v := range values {
		bits := math.Float64bits(v)
		if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
			return nil, err
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// DecompressValues reverses CompressValues
func (c *Codec) DecompressValues(data []byte, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(decompressed) != count*8 {
		return nil, fmt.Errorf("decompressed %d bytes, want %d", len(decompressed), count*8)
	}

	values := make([]float64, count)
	var prevBits uint64
	for i := range values {
		bits := binary.LittleEndian.Uint64(decompressed[i*8:]) ^ prevBits
		values[i] = math.Float64frombits(bits)
		prevBits = bits
	}
	return values, nil
}

// Close releases the encoder and decoder
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
