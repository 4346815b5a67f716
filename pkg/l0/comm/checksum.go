package comm

// Checksum XOR-folds all bytes.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}

// Verify checks a received frame including its trailing checksum byte.
// The XOR over the whole frame must be zero.
func Verify(frame []byte) bool {
	return Checksum(frame) == 0
}
