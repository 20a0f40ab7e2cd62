/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bitstring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

func TestBitAt(t *testing.T) {
	bits := []byte{0b00000101, 0b10000000}

	for idx, expected := range map[int]bool{0: true, 1: false, 2: true, 8: false, 15: true} {
		set, err := BitAt(bits, idx)
		require.NoError(t, err)
		require.Equal(t, expected, set, idx)
	}

	_, err := BitAt(bits, 16)
	require.True(t, errors.Is(err, vcerr.ErrClaimsConstraintViolation))

	_, err = BitAt(bits, -1)
	require.True(t, errors.Is(err, vcerr.ErrClaimsConstraintViolation))
}

func TestValueAt(t *testing.T) {
	bits := []byte{0b11100100}

	for idx, expected := range []uint8{0, 1, 2, 3} {
		v, err := ValueAt(bits, idx, 2)
		require.NoError(t, err)
		require.Equal(t, expected, v)
	}

	_, err := ValueAt(bits, 4, 2)
	require.ErrorContains(t, err, "out of range of status list with 4 entries")

	_, err = ValueAt(bits, 0, 3)
	require.ErrorContains(t, err, "unsupported status size")
}

func TestSet(t *testing.T) {
	bits := make([]byte, 2)

	require.NoError(t, Set(bits, 9, 1, 1))
	require.Equal(t, []byte{0, 0b10}, bits)

	require.NoError(t, Set(bits, 1, 4, 0xF))
	require.NoError(t, Set(bits, 1, 4, 0x2))
	require.Equal(t, []byte{0x20, 0b10}, bits)

	require.Error(t, Set(bits, 16, 1, 1))
}

func TestEncodeDecode(t *testing.T) {
	bits := make([]byte, 16*1024)
	require.NoError(t, Set(bits, 94567, 1, 1))

	for name, opts := range map[string][]Opt{
		"gzip base64url": nil,
		"gzip multibase": {WithMultiBaseEncoding(true)},
		"zlib base64url": {WithZlib()},
	} {
		t.Run(name, func(t *testing.T) {
			encoded, err := Encode(bits, opts...)
			require.NoError(t, err)

			decoded, err := Decode(encoded, opts...)
			require.NoError(t, err)
			require.Equal(t, bits, decoded)

			set, err := BitAt(decoded, 94567)
			require.NoError(t, err)
			require.True(t, set)
		})
	}

	t.Run("error - not base64", func(t *testing.T) {
		_, err := Decode("%%%")
		require.True(t, errors.Is(err, vcerr.ErrMalformedEncoding))
	})

	t.Run("error - not compressed", func(t *testing.T) {
		_, err := Decode("AAAA")
		require.True(t, errors.Is(err, vcerr.ErrMalformedEncoding))
	})
}

func TestDecompressSizeLimit(t *testing.T) {
	bits := make([]byte, 4096)

	for name, opts := range map[string][]Opt{
		"gzip": nil,
		"zlib": {WithZlib()},
	} {
		t.Run(name, func(t *testing.T) {
			compressed, err := Compress(bits, opts...)
			require.NoError(t, err)

			decompressed, err := Decompress(compressed, append(opts, WithMaxSize(4096))...)
			require.NoError(t, err)
			require.Len(t, decompressed, 4096)

			_, err = Decompress(compressed, append(opts, WithMaxSize(4095))...)
			require.True(t, errors.Is(err, vcerr.ErrMalformedEncoding))
			require.ErrorContains(t, err, "exceeds 4095 bytes")
		})
	}

	t.Run("default limit", func(t *testing.T) {
		bomb, err := Compress(make([]byte, MaxDecompressedSize+1), WithZlib())
		require.NoError(t, err)
		require.Less(t, len(bomb), 1<<20)

		_, err = Decompress(bomb, WithZlib())
		require.ErrorContains(t, err, "exceeds")
	})
}
