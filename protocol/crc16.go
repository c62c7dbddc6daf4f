package protocol

// CRC16 returns the CRC-16/MCRF4XX checksum used in frame trailers
// (reflected CCITT polynomial, initial value 0xFFFF).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Update(crc, b)
	}
	return crc
}

func crc16Update(crc uint16, b byte) uint16 {
	b ^= byte(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ w>>4 ^ w<<3
}
