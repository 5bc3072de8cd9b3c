package decoder

import "github.com/mmdbkit/mmdbreader/internal/mmdberrors"

// VerifyDataSection decodes the value at every offset reachable from the
// search tree (as recorded in offsets) and reports the first error
// encountered. It exists purely for Reader.Verify: ordinary lookups never
// need to touch data they didn't ask for.
func (d *DataDecoder) VerifyDataSection(offsets map[uint]bool) error {
	for offset := range offsets {
		if _, _, err := d.DecodeValue(offset); err != nil {
			return mmdberrors.NewInvalidDatabaseError(
				"data section entry at offset %d is invalid: %v", offset, err,
			)
		}
	}
	return nil
}
