package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomSerialNumber 生成机器人序列号，如 "CB-4f2a9c1d"
func RandomSerialNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic("generate random serial number failed")
	}
	return "CB-" + hex.EncodeToString(buf)
}
