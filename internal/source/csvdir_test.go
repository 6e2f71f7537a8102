package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVehicleFromFilename(t *testing.T) {
	assert.Equal(t, "1234", vehicleFromFilename("2026-07-30_1234.csv.gz"))
	assert.Equal(t, "ABC12", vehicleFromFilename("2026-07-30-night-run-ABC12.csv.gz"))
	assert.Equal(t, "", vehicleFromFilename("not-a-blob.csv"))
}

func TestBlobNamePattern_RejectsMissingDatePrefix(t *testing.T) {
	assert.False(t, blobNamePattern.MatchString("1234.csv.gz"))
}
