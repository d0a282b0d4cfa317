package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum fingerprints a Mat's shape, type and pixel data. Two masks
// with the same checksum are byte-for-byte identical.
//
//	if ComputeMatChecksum(a) != ComputeMatChecksum(b) {
//	    // masks differ
//	}
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	hash := md5.New()
	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(mat.Rows()))
	binary.LittleEndian.PutUint32(header[4:], uint32(mat.Cols()))
	binary.LittleEndian.PutUint32(header[8:], uint32(mat.Type()))
	hash.Write(header[:])

	data, err := mat.DataPtrUint8()
	if err != nil {
		return "unreadable"
	}
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
