package windfield

import (
	"fmt"

	"github.com/stratodrop/driftcast/internal/types"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshot is the serialized form of a fitted model: the selected kernel
// hyperparameters plus the training data. Loading replays the deterministic
// solve with the stored kernels, so a round-tripped model produces
// bit-identical predictions.
type snapshot struct {
	LengthScaleU float64            `msgpack:"length_scale_u"`
	LengthScaleV float64            `msgpack:"length_scale_v"`
	Options      Options            `msgpack:"options"`
	Samples      []types.WindSample `msgpack:"samples"`
}

// MarshalBinary encodes the fitted model as a msgpack blob.
func (m *Model) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(snapshot{
		LengthScaleU: m.u.kernel.LengthScale,
		LengthScaleV: m.v.kernel.LengthScale,
		Options:      m.opts,
		Samples:      m.samples,
	})
}

// UnmarshalModel reconstructs a fitted model from a msgpack blob produced by
// MarshalBinary.
func UnmarshalModel(data []byte) (*Model, error) {
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("windfield: decoding model snapshot: %w", err)
	}

	distinct := countDistinctAltitudes(snap.Samples)
	if distinct < 2 {
		return nil, &InsufficientDataError{DistinctAltitudes: distinct}
	}

	n := len(snap.Samples)
	alts := make([]float64, n)
	us := make([]float64, n)
	vs := make([]float64, n)
	minAlt, maxAlt := snap.Samples[0].Altitude, snap.Samples[0].Altitude
	for i, s := range snap.Samples {
		alts[i] = s.Altitude
		us[i] = s.U
		vs[i] = s.V
		if s.Altitude < minAlt {
			minAlt = s.Altitude
		}
		if s.Altitude > maxAlt {
			maxAlt = s.Altitude
		}
	}

	u, err := fitRegressor(alts, us, rbfKernel{LengthScale: snap.LengthScaleU, NoiseVar: snap.Options.NoiseVar})
	if err != nil {
		return nil, fmt.Errorf("windfield: restoring u component: %w", err)
	}
	v, err := fitRegressor(alts, vs, rbfKernel{LengthScale: snap.LengthScaleV, NoiseVar: snap.Options.NoiseVar})
	if err != nil {
		return nil, fmt.Errorf("windfield: restoring v component: %w", err)
	}

	return &Model{
		u:       u,
		v:       v,
		minAlt:  minAlt,
		maxAlt:  maxAlt,
		opts:    snap.Options,
		samples: snap.Samples,
	}, nil
}
