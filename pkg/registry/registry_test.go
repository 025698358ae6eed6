package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"molnet/pkg/hyper"
)

type constSchedule float64

func (s constSchedule) Rate(epoch int) float64 { return float64(s) }

func TestRegistryLookup(t *testing.T) {
	r := New()
	r.RegisterSchedule("LinearLearningRateScheduler", func(config []byte) (Schedule, error) {
		return constSchedule(0.001), nil
	})

	b, err := r.Schedule("LinearLearningRateScheduler")
	require.NoError(t, err)
	require.NotNil(t, b)

	_, err = r.Schedule("CosineAnnealingScheduler")
	var unsupported *hyper.UnsupportedOptionError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "callback", unsupported.Kind)

	_, err = r.Optimizer("Adam")
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "optimizer", unsupported.Kind)
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterLoss("mean_squared_error", nil)
	require.Panics(t, func() {
		r.RegisterLoss("mean_squared_error", nil)
	})
}

func TestRegistryCatalog(t *testing.T) {
	r := New()
	r.RegisterSchedule("ExponentialDecay", func(config []byte) (Schedule, error) {
		if len(config) == 0 {
			return nil, &hyper.SchemaError{Field: "config", Reason: "required"}
		}
		return constSchedule(0.01), nil
	})

	require.NoError(t, r.CheckSchedule("ExponentialDecay", []byte(`{}`)))

	err := r.CheckSchedule("ExponentialDecay", nil)
	var schemaErr *hyper.SchemaError
	require.True(t, errors.As(err, &schemaErr))

	err = r.CheckSchedule("NoSuchSchedule", []byte(`{}`))
	var unsupported *hyper.UnsupportedOptionError
	require.True(t, errors.As(err, &unsupported))

	require.False(t, r.HasModel("Unet"))
	require.False(t, r.HasDataset("ESOLDataset"))
}
