/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstring provides functions for operating on byte slices as if they are 0-indexed arrays of bits,
// packed 8 bits to a byte, LSB-first.
package bitstring

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	bitsPerByte = 8
	one         = 0x1

	// MaxDecompressedSize caps inflated status lists at 16 MiB, 134217728 single bit entries.
	MaxDecompressedSize = 16 << 20
)

// Decode decodes a compressed bitstring from a base64URL-encoded string.
func Decode(src string, opts ...Opt) ([]byte, error) {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	var (
		decodedBits []byte
		err         error
	)

	if options.multiBaseEncoding {
		_, decodedBits, err = multibase.Decode(src)
	} else {
		decodedBits, err = base64.RawURLEncoding.DecodeString(src)
	}

	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decode bitstring: %w", err)
	}

	return Decompress(decodedBits, opts...)
}

// Decompress inflates gzip (default) or zlib compressed bitstring.
// Output larger than MaxDecompressedSize (or WithMaxSize) is rejected.
func Decompress(compressed []byte, opts ...Opt) ([]byte, error) {
	options := &options{maxSize: MaxDecompressedSize}

	for _, opt := range opts {
		opt(options)
	}

	var (
		r   io.ReadCloser
		err error
	)

	if options.zlib {
		r, err = zlib.NewReader(bytes.NewReader(compressed))
	} else {
		r, err = gzip.NewReader(bytes.NewReader(compressed))
	}

	if err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decompress bitstring: %w", err)
	}

	defer r.Close() //nolint:errcheck

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(io.LimitReader(r, options.maxSize+1)); err != nil {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "decompress bitstring: %w", err)
	}

	if int64(buf.Len()) > options.maxSize {
		return nil, vcerr.New(vcerr.KindMalformedEncoding,
			"decompressed bitstring exceeds %d bytes", options.maxSize)
	}

	return buf.Bytes(), nil
}

// BitAt returns the bit in the idx'th position (zero-indexed) in the given bitstring.
func BitAt(bitString []byte, idx int) (bool, error) {
	v, err := ValueAt(bitString, idx, 1)

	return v != 0, err
}

// ValueAt returns the idx'th status of size bits. Size must divide 8.
func ValueAt(bitString []byte, idx, size int) (uint8, error) {
	if size <= 0 || size > bitsPerByte || bitsPerByte%size != 0 {
		return 0, vcerr.New(vcerr.KindClaimsConstraintViolation, "unsupported status size %d", size)
	}

	if idx < 0 {
		return 0, vcerr.New(vcerr.KindClaimsConstraintViolation, "position %d is invalid", idx)
	}

	nByte := idx * size / bitsPerByte
	nBit := idx * size % bitsPerByte

	if nByte >= len(bitString) {
		return 0, vcerr.New(vcerr.KindClaimsConstraintViolation,
			"position %d is out of range of status list with %d entries", idx, len(bitString)*bitsPerByte/size)
	}

	mask := byte(one<<size - 1)

	return (bitString[nByte] >> nBit) & mask, nil
}

// Encode gzips a bitstring and encodes it as a raw urlsafe base-64 string.
func Encode(bitString []byte, opts ...Opt) (string, error) {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	compressed, err := Compress(bitString, opts...)
	if err != nil {
		return "", err
	}

	if options.multiBaseEncoding {
		return multibase.Encode(multibase.Base64url, compressed)
	}

	return base64.RawURLEncoding.EncodeToString(compressed), nil
}

// Compress deflates bitstring with gzip (default) or zlib.
func Compress(bitString []byte, opts ...Opt) ([]byte, error) {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	var (
		buf bytes.Buffer
		w   io.WriteCloser
	)

	if options.zlib {
		w = zlib.NewWriter(&buf)
	} else {
		w = gzip.NewWriter(&buf)
	}

	if _, err := w.Write(bitString); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Set sets the idx'th status of size bits to value.
func Set(bitString []byte, idx, size int, value uint8) error {
	if _, err := ValueAt(bitString, idx, size); err != nil {
		return err
	}

	nByte := idx * size / bitsPerByte
	nBit := idx * size % bitsPerByte
	mask := byte(one<<size-1) << nBit

	bitString[nByte] = bitString[nByte]&^mask | (value<<nBit)&mask

	return nil
}

// Opt configures bitstring encoding.
type Opt func(*options)

type options struct {
	multiBaseEncoding bool
	zlib              bool
	maxSize           int64
}

// WithMultiBaseEncoding sets support of multiBase encoding.
func WithMultiBaseEncoding(multiBaseEncoding bool) Opt {
	return func(options *options) {
		options.multiBaseEncoding = multiBaseEncoding
	}
}

// WithZlib switches compression from gzip to zlib.
func WithZlib() Opt {
	return func(options *options) {
		options.zlib = true
	}
}

// WithMaxSize overrides MaxDecompressedSize.
func WithMaxSize(n int64) Opt {
	return func(options *options) {
		options.maxSize = n
	}
}
