package crypto

// XORKey is the 16-byte key of the BMD v12 chained XOR.
var XORKey = [16]byte{
	0xD1, 0x73, 0x52, 0xF6, 0xD2, 0x9A, 0xCB, 0x27,
	0x3E, 0xAF, 0x59, 0x31, 0x37, 0xB3, 0xE7, 0xA2,
}

// DecryptXOR decrypts BMD v12 data using chained XOR with the 16-byte key.
// Initial chain value is 0x5E. For each byte:
//
//	out[i] = ((data[i] ^ XORKey[i&15]) - chainKey) & 0xFF
//	chainKey = (data[i] + 0x3D) & 0xFF
func DecryptXOR(data []byte) []byte {
	out := make([]byte, len(data))
	chainKey := byte(0x5E)

	for i, b := range data {
		out[i] = (b ^ XORKey[i&15]) - chainKey
		chainKey = b + 0x3D
	}
	return out
}

// EncryptXOR is the inverse of DecryptXOR.
func EncryptXOR(data []byte) []byte {
	out := make([]byte, len(data))
	chainKey := byte(0x5E)

	for i, b := range data {
		out[i] = (b + chainKey) ^ XORKey[i&15]
		chainKey = out[i] + 0x3D
	}
	return out
}
