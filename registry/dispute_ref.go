package registry

import (
	"bytes"
	"fmt"

	"github.com/spacemeshos/go-scale"
)

// disputeRef points from an arbitrator's dispute back to the request it settles.
type disputeRef struct {
	ItemID       ItemID
	RequestIndex uint64
}

func (d *disputeRef) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteArray(enc, d.ItemID[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, d.RequestIndex)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (d *disputeRef) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := scale.DecodeByteArray(dec, d.ItemID[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		d.RequestIndex = field
	}
	return total, nil
}

func (d *disputeRef) marshal() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, fmt.Errorf("encoding dispute reference: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *disputeRef) unmarshal(data []byte) error {
	if _, err := d.DecodeScale(scale.NewDecoder(bytes.NewReader(data))); err != nil {
		return fmt.Errorf("decoding dispute reference: %w", err)
	}
	return nil
}
