/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa_test

import "crypto/sha256"

func sha256Sum(msg []byte) []byte {
	sum := sha256.Sum256(msg)

	return sum[:]
}
