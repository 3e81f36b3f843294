// Package leb128 encodes and decodes the LEB128 variable-length integer
// encoding used throughout the WebAssembly binary format for indices, sizes,
// and signed/unsigned immediates.
package leb128

import (
	"bytes"
	"fmt"
	"io"
)

const (
	maxVarintLenUint32 = 5
	maxVarintLenInt32  = 5
	maxVarintLenUint64 = 10
	maxVarintLenInt64  = 10
)

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 0, maxVarintLenUint64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	out := make([]byte, 0, maxVarintLenInt64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// LoadUint32 decodes an unsigned LEB128 value from the front of buf,
// returning the decoded value and the number of bytes consumed.
func LoadUint32(buf []byte) (ret uint32, bytesRead uint64, err error) {
	v, n, err := loadUnsigned(buf, 32)
	return uint32(v), n, err
}

// LoadUint64 decodes an unsigned LEB128 value from the front of buf.
func LoadUint64(buf []byte) (ret uint64, bytesRead uint64, err error) {
	return loadUnsigned(buf, 64)
}

// LoadInt32 decodes a signed LEB128 value from the front of buf.
func LoadInt32(buf []byte) (ret int32, bytesRead uint64, err error) {
	v, n, err := loadSigned(buf, 32)
	return int32(v), n, err
}

// LoadInt64 decodes a signed LEB128 value from the front of buf.
func LoadInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	return loadSigned(buf, 64)
}

func loadUnsigned(buf []byte, size int) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var read uint64
	maxLen := maxVarintLenUint64
	if size == 32 {
		maxLen = maxVarintLenUint32
	}
	for {
		if int(read) >= len(buf) {
			return 0, read, io.ErrUnexpectedEOF
		}
		if int(read) >= maxLen {
			return 0, read, fmt.Errorf("leb128 unsigned overflows %d bits", size)
		}
		b := buf[read]
		read++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, read, nil
		}
		shift += 7
	}
}

func loadSigned(buf []byte, size int) (int64, uint64, error) {
	var result int64
	var shift uint
	var read uint64
	maxLen := maxVarintLenInt64
	if size == 32 {
		maxLen = maxVarintLenInt32
	}
	var b byte
	for {
		if int(read) >= len(buf) {
			return 0, read, io.ErrUnexpectedEOF
		}
		if int(read) >= maxLen {
			return 0, read, fmt.Errorf("leb128 signed overflows %d bits", size)
		}
		b = buf[read]
		read++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < uint(size) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, read, nil
}

// DecodeUint32 reads an unsigned LEB128 value from r.
func DecodeUint32(r io.ByteReader) (uint32, error) {
	v, err := decodeUnsignedReader(r, 32)
	return uint32(v), err
}

// DecodeUint64 reads an unsigned LEB128 value from r.
func DecodeUint64(r io.ByteReader) (uint64, error) {
	return decodeUnsignedReader(r, 64)
}

// DecodeInt32 reads a signed LEB128 value from r.
func DecodeInt32(r io.ByteReader) (int32, error) {
	v, err := decodeSignedReader(r, 32)
	return int32(v), err
}

// DecodeInt64 reads a signed LEB128 value from r.
func DecodeInt64(r io.ByteReader) (int64, error) {
	return decodeSignedReader(r, 64)
}

func decodeUnsignedReader(r io.ByteReader, size int) (uint64, error) {
	var result uint64
	var shift uint
	maxLen := maxVarintLenUint64
	if size == 32 {
		maxLen = maxVarintLenUint32
	}
	for i := 0; ; i++ {
		if i >= maxLen {
			return 0, fmt.Errorf("leb128 unsigned overflows %d bits", size)
		}
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func decodeSignedReader(r io.ByteReader, size int) (int64, error) {
	var result int64
	var shift uint
	maxLen := maxVarintLenInt64
	if size == 32 {
		maxLen = maxVarintLenInt32
	}
	var b byte
	for i := 0; ; i++ {
		if i >= maxLen {
			return 0, fmt.Errorf("leb128 signed overflows %d bits", size)
		}
		var err error
		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < uint(size) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// EncodeUint32AsReader is a convenience used by encoders that write through
// an io.Writer rather than building a []byte up front.
func EncodeUint32AsReader(v uint32) io.Reader { return bytes.NewReader(EncodeUint32(v)) }
