/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package checker_test

import (
	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
)

func paramsFor(alg jwtproofs.Algorithm, keyID string) jwt.SignParameters {
	return jwt.SignParameters{JWTAlg: string(alg), KeyID: keyID}
}
