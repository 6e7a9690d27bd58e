package codec

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/watchmodel"
)

// EncodeHealthCheck renders a HealthCheck to the durable binary format.
func EncodeHealthCheck(h watchmodel.HealthCheck) []byte {
	var w writer
	w.putString(tagHCName, h.Name)
	w.putString(tagHCServiceName, h.ServiceName)
	if h.Partition != uuid.Nil {
		hi, lo := uuidHalves(h.Partition)
		w.putUint64(tagHCPartitionHi, hi)
		w.putUint64(tagHCPartitionLo, lo)
	}
	w.putString(tagHCEndpoint, h.Endpoint)
	w.putString(tagHCSuffixPath, h.SuffixPath)
	w.putString(tagHCMethod, h.Method)
	if len(h.Content) > 0 {
		w.putBytes(tagHCContent, h.Content)
	}
	if h.MediaType != nil {
		w.putString(tagHCMediaType, *h.MediaType)
	}
	w.putInt64(tagHCFrequencyTicks, watchmodel.DurationToTicks(h.Frequency))
	w.putInt64(tagHCExpectedDurationTicks, watchmodel.DurationToTicks(h.ExpectedDuration))
	w.putInt64(tagHCMaximumDurationTicks, watchmodel.DurationToTicks(h.MaximumDuration))
	for k, v := range h.Headers {
		w.putString(tagHCHeaderEntry, k+"\x00"+v)
	}
	for code := range h.WarningStatusCodes {
		w.putInt32(tagHCWarningCode, int32(code))
	}
	for code := range h.ErrorStatusCodes {
		w.putInt32(tagHCErrorCode, int32(code))
	}
	w.putInt64(tagHCLastAttemptTicks, int64(h.LastAttempt))
	w.putInt32(tagHCFailureCount, int32(h.FailureCount))
	w.putInt32(tagHCResultCode, int32(h.ResultCode))
	w.putInt64(tagHCDurationMillis, h.Duration)
	return w.bytes()
}

// DecodeHealthCheck parses the durable binary format back into a HealthCheck.
// Unknown tags are silently ignored, so records written by a future schema
// version remain readable.
func DecodeHealthCheck(data []byte) (watchmodel.HealthCheck, error) {
	r, err := parse(data)
	if err != nil {
		return watchmodel.HealthCheck{}, err
	}
	h := watchmodel.HealthCheck{
		Name:             r.string(tagHCName),
		ServiceName:      r.string(tagHCServiceName),
		Endpoint:         r.string(tagHCEndpoint),
		SuffixPath:       r.string(tagHCSuffixPath),
		Method:           r.string(tagHCMethod),
		MediaType:        r.stringPtr(tagHCMediaType),
		Frequency:        watchmodel.TicksToDuration(r.int64(tagHCFrequencyTicks)),
		ExpectedDuration: watchmodel.TicksToDuration(r.int64(tagHCExpectedDurationTicks)),
		MaximumDuration:  watchmodel.TicksToDuration(r.int64(tagHCMaximumDurationTicks)),
		LastAttempt:      watchmodel.Tick(r.int64(tagHCLastAttemptTicks)),
		FailureCount:     int(r.int32(tagHCFailureCount)),
		ResultCode:       int(r.int32(tagHCResultCode)),
		Duration:         r.int64(tagHCDurationMillis),
	}
	if r.has(tagHCContent) {
		h.Content = r.repeated(tagHCContent)[0]
	}
	if r.has(tagHCPartitionHi) || r.has(tagHCPartitionLo) {
		h.Partition = uuidFromHalves(r.uint64(tagHCPartitionHi), r.uint64(tagHCPartitionLo))
	}
	if entries := r.repeated(tagHCHeaderEntry); len(entries) > 0 {
		h.Headers = make(map[string]string, len(entries))
		for _, e := range entries {
			k, v, ok := strings.Cut(string(e), "\x00")
			if ok {
				h.Headers[k] = v
			}
		}
	}
	if codes := r.repeated(tagHCWarningCode); len(codes) > 0 {
		h.WarningStatusCodes = make(map[int]struct{}, len(codes))
		for _, c := range codes {
			h.WarningStatusCodes[int(beInt32(c))] = struct{}{}
		}
	}
	if codes := r.repeated(tagHCErrorCode); len(codes) > 0 {
		h.ErrorStatusCodes = make(map[int]struct{}, len(codes))
		for _, c := range codes {
			h.ErrorStatusCodes[int(beInt32(c))] = struct{}{}
		}
	}
	return h, nil
}

func beInt32(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func uuidHalves(u uuid.UUID) (hi, lo uint64) {
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(u[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(u[i])
	}
	return hi, lo
}

func uuidFromHalves(hi, lo uint64) uuid.UUID {
	var u uuid.UUID
	for i := 7; i >= 0; i-- {
		u[i] = byte(hi)
		hi >>= 8
	}
	for i := 15; i >= 8; i-- {
		u[i] = byte(lo)
		lo >>= 8
	}
	return u
}
