/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
)

// PresentationBuilder selects disclosures of an SD-JWT for presentation.
// Nothing is disclosed initially.
type PresentationBuilder struct {
	sdjwt    *SDJWT
	selected map[string]bool
}

// NewPresentationBuilder creates builder starting from conceal-all.
func NewPresentationBuilder(sdjwt *SDJWT) *PresentationBuilder {
	return &PresentationBuilder{
		sdjwt:    sdjwt,
		selected: map[string]bool{},
	}
}

// Disclose includes claim at path together with enclosing disclosures.
// A path inside an always visible part of a concealable claim discloses that claim.
// The path must exist in the fully disclosed claims.
func (b *PresentationBuilder) Disclose(path string) error {
	claim, ok := b.sdjwt.byPath(path)
	if !ok {
		if !b.sdjwt.exists(path) {
			return fmt.Errorf("claim '%s' not found", path)
		}

		claim, ok = b.closestAncestor(path)
	}

	if !ok {
		return fmt.Errorf("no disclosure for claim '%s'", path)
	}

	for c := claim; c != nil; c = b.byDigest(c.Parent) {
		b.selected[c.Digest] = true
	}

	return nil
}

// Conceal removes claim at path and all disclosures nested in it.
func (b *PresentationBuilder) Conceal(path string) error {
	claim, ok := b.sdjwt.byPath(path)
	if !ok {
		return fmt.Errorf("no disclosure for claim '%s'", path)
	}

	for _, c := range b.sdjwt.Disclosures {
		if b.isDescendantOrSelf(c, claim.Digest) {
			delete(b.selected, c.Digest)
		}
	}

	return nil
}

// DiscloseAll includes all disclosures.
func (b *PresentationBuilder) DiscloseAll() {
	for _, c := range b.sdjwt.Disclosures {
		b.selected[c.Digest] = true
	}
}

// ConcealAll removes all disclosures.
func (b *PresentationBuilder) ConcealAll() {
	b.selected = map[string]bool{}
}

// Finish returns presentation token without key binding and the omitted disclosures.
// Disclosures keep the issuance order.
func (b *PresentationBuilder) Finish() (*common.SDToken, []*Claim) {
	isSelected := func(c *Claim, _ int) bool { return b.selected[c.Digest] }

	disclosed := lo.Filter(b.sdjwt.Disclosures, isSelected)
	omitted := lo.Reject(b.sdjwt.Disclosures, isSelected)

	return &common.SDToken{
		IssuerJWT:   b.sdjwt.Token.IssuerJWT,
		Disclosures: lo.Map(disclosed, func(c *Claim, _ int) string { return c.Disclosure }),
	}, omitted
}

func (b *PresentationBuilder) byDigest(digest string) *Claim {
	if digest == "" {
		return nil
	}

	c, _ := lo.Find(b.sdjwt.Disclosures, func(c *Claim) bool { return c.Digest == digest })

	return c
}

func (b *PresentationBuilder) isDescendantOrSelf(c *Claim, ancestor string) bool {
	for ; c != nil; c = b.byDigest(c.Parent) {
		if c.Digest == ancestor {
			return true
		}
	}

	return false
}

func (b *PresentationBuilder) closestAncestor(path string) (*Claim, bool) {
	var best *Claim

	for _, c := range b.sdjwt.Disclosures {
		if strings.HasPrefix(path, c.Path+"/") && (best == nil || len(c.Path) > len(best.Path)) {
			best = c
		}
	}

	return best, best != nil
}
