package reviews

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// Review is one row of the customer reviews table. The export carries a
// leading unnamed index column and several other columns that are not used
// by the pipeline; gocsv drops anything without a matching tag.
type Review struct {
	Text        string `csv:"Review Text"`
	Recommended int    `csv:"Recommended IND"`
}

// Load reads the full reviews table at path into memory. Errors on a
// missing or malformed file are returned to the caller unmodified beyond
// wrapping; there is no retry logic here.
func Load(path string) ([]Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening reviews file %s", path)
	}
	defer f.Close()

	var revs []Review
	if err := gocsv.UnmarshalFile(f, &revs); err != nil {
		return nil, errors.Wrapf(err, "error parsing reviews file %s", path)
	}
	return revs, nil
}
