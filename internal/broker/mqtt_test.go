package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVehicleFromTopic(t *testing.T) {
	assert.Equal(t, "42", vehicleFromTopic("eke/raw/unit/42/connectionStatus"))
	assert.Equal(t, "", vehicleFromTopic("too/short"))
}
