package smtalg

import "github.com/aclements/go-z3/z3"

// Slice extracts bits [hi:lo] (inclusive, P4 order) from a bitvector. Both
// bounds are compile-time constants by construction (p4ir.Slice only
// carries int bounds) so there is nothing symbolic to simplify beyond the
// extract itself.
func Slice(arg z3.BV, hi, lo int) z3.BV {
	extracted := arg.Extract(hi, lo)
	return extracted.Context().Simplify(extracted, nil).(z3.BV)
}

// AssembleSlice builds the bitvector produced by writing rval into
// bits [hi:lo] of a value that was target's width, concatenating any
// untouched high bits above hi and low bits below lo around rval. When
// hi == width-1 && lo == 0 the write is a full replacement and rval is
// returned unchanged, with no concatenation.
func AssembleSlice(ctx *z3.Context, original z3.BV, rval z3.BV, hi, lo int) z3.BV {
	width := int(original.Sort().BVSize())
	if hi == width-1 && lo == 0 {
		return rval
	}
	parts := make([]z3.BV, 0, 3)
	if hi < width-1 {
		parts = append(parts, original.Extract(width-1, hi+1))
	}
	parts = append(parts, rval)
	if lo > 0 {
		parts = append(parts, original.Extract(lo-1, 0))
	}
	result := parts[0]
	for _, p := range parts[1:] {
		result = result.Concat(p)
	}
	return result
}
