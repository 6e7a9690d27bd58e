package metricengine

import (
	"github.com/wisbric/watchdog/internal/codec"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func mcCodec() storekv.Codec[watchmodel.MetricCheck] {
	return storekv.Codec[watchmodel.MetricCheck]{
		Encode: codec.EncodeMetricCheck,
		Decode: codec.DecodeMetricCheck,
	}
}

func mcCodecMap(tx *storekv.Tx) (*storekv.Map[watchmodel.MetricCheck], error) {
	return storekv.GetOrCreateMap(tx, mcMapName, mcCodec())
}
