package codec

// Tag numbers are wire-stable: once assigned to a field they are never
// reassigned, even if the field is later removed. A reader that encounters
// an unrecognized tag skips it (length-prefixed framing makes this cheap)
// instead of failing, so old records stay readable across schema growth.
type tag uint16

const (
	tagHCName                tag = 1
	tagHCServiceName         tag = 2
	tagHCPartitionHi         tag = 3
	tagHCPartitionLo         tag = 4
	tagHCEndpoint            tag = 5
	tagHCSuffixPath          tag = 6
	tagHCMethod               tag = 7
	tagHCContent              tag = 8
	tagHCMediaType            tag = 9
	tagHCFrequencyTicks       tag = 10
	tagHCExpectedDurationTicks tag = 11
	tagHCMaximumDurationTicks  tag = 12
	tagHCHeaderEntry           tag = 13 // repeated, "name\x00value"
	tagHCWarningCode           tag = 14 // repeated, 4-byte big-endian int32
	tagHCErrorCode             tag = 15 // repeated, 4-byte big-endian int32
	tagHCLastAttemptTicks      tag = 16
	tagHCFailureCount          tag = 17
	tagHCResultCode            tag = 18
	tagHCDurationMillis        tag = 19

	tagSchedExecutionTicks tag = 1
	tagSchedKey            tag = 2

	tagMCMetricName  tag = 1 // repeated
	tagMCApplication tag = 2
	tagMCService     tag = 3
	tagMCPartition   tag = 4
)
