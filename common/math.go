// Package common contains the shared math helpers used throughout the atlas
// pipeline. Matrices are flat float32 slices stored in column-major order, the
// same convention glTF uses on the wire: a 4x4 matrix is a 16-element slice
// where element [col*4+row] holds row `row` of column `col`, and a 3x3 normal
// matrix is a 9-element slice indexed [col*3+row].
package common

import (
	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// NewIdentity allocates a fresh 4x4 identity matrix.
//
// Returns:
//   - []float32: a 16-element column-major identity matrix
func NewIdentity() []float32 {
	m := make([]float32, 16)
	Identity(m)
	return m
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order.
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// ComposeTRS builds a 4x4 column-major matrix from a translation, a unit
// quaternion rotation in (x, y, z, w) order, and a per-axis scale.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - t: translation (x, y, z)
//   - q: rotation quaternion (x, y, z, w)
//   - s: scale (x, y, z)
func ComposeTRS(out []float32, t [3]float32, q [4]float32, s [3]float32) {
	x, y, z, w := q[0], q[1], q[2], q[3]

	r00 := 1 - 2*(y*y+z*z)
	r01 := 2 * (x*y - z*w)
	r02 := 2 * (x*z + y*w)
	r10 := 2 * (x*y + z*w)
	r11 := 1 - 2*(x*x+z*z)
	r12 := 2 * (y*z - x*w)
	r20 := 2 * (x*z - y*w)
	r21 := 2 * (y*z + x*w)
	r22 := 1 - 2*(x*x+y*y)

	out[0] = r00 * s[0]
	out[1] = r10 * s[0]
	out[2] = r20 * s[0]
	out[3] = 0

	out[4] = r01 * s[1]
	out[5] = r11 * s[1]
	out[6] = r21 * s[1]
	out[7] = 0

	out[8] = r02 * s[2]
	out[9] = r12 * s[2]
	out[10] = r22 * s[2]
	out[11] = 0

	out[12] = t[0]
	out[13] = t[1]
	out[14] = t[2]
	out[15] = 1
}

// TransformPoint applies a 4x4 column-major transform to a position. The
// homogeneous w component is divided through only when it is neither 0 nor 1,
// matching the affine fast path used for typical node transforms.
//
// Parameters:
//   - m: the transform (16 elements, column-major)
//   - p: the position to transform
//
// Returns:
//   - [3]float32: the transformed position
func TransformPoint(m []float32, p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]

	if w != 0 && w != 1 {
		inv := 1 / w
		x *= inv
		y *= inv
		z *= inv
	}
	return [3]float32{x, y, z}
}

// NormalMatrix computes the inverse-transpose of the upper-left 3x3 block of a
// 4x4 transform, using the cofactor (adjugate) method: inverse-transpose equals
// the cofactor matrix divided by the determinant. When the determinant is zero
// the output is set to the 3x3 identity and false is returned, so degenerate
// transforms leave normals untouched rather than failing.
//
// Parameters:
//   - out: destination slice (must be at least 9 elements, column-major)
//   - m: source 4x4 transform (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was invertible, false if the identity fallback was used
func NormalMatrix(out, m []float32) bool {
	// Upper-left 3x3, a<row><col>.
	a00, a01, a02 := m[0], m[4], m[8]
	a10, a11, a12 := m[1], m[5], m[9]
	a20, a21, a22 := m[2], m[6], m[10]

	c00 := a11*a22 - a12*a21
	c01 := a12*a20 - a10*a22
	c02 := a10*a21 - a11*a20
	c10 := a02*a21 - a01*a22
	c11 := a00*a22 - a02*a20
	c12 := a01*a20 - a00*a21
	c20 := a01*a12 - a02*a11
	c21 := a02*a10 - a00*a12
	c22 := a00*a11 - a01*a10

	det := a00*c00 + a01*c01 + a02*c02
	if det == 0 {
		for i := 0; i < 9; i++ {
			out[i] = 0
		}
		out[0], out[4], out[8] = 1, 1, 1
		return false
	}

	inv := 1 / det
	out[0] = c00 * inv
	out[1] = c01 * inv
	out[2] = c02 * inv
	out[3] = c10 * inv
	out[4] = c11 * inv
	out[5] = c12 * inv
	out[6] = c20 * inv
	out[7] = c21 * inv
	out[8] = c22 * inv
	return true
}

// TransformDirection applies a 3x3 column-major matrix to a direction vector
// and renormalizes the result to unit length. A zero-length result is returned
// as-is to avoid dividing by zero on degenerate inputs.
//
// Parameters:
//   - n: the 3x3 matrix (9 elements, column-major)
//   - v: the direction to transform
//
// Returns:
//   - [3]float32: the transformed, renormalized direction
func TransformDirection(n []float32, v [3]float32) [3]float32 {
	x := n[0]*v[0] + n[3]*v[1] + n[6]*v[2]
	y := n[1]*v[0] + n[4]*v[1] + n[7]*v[2]
	z := n[2]*v[0] + n[5]*v[1] + n[8]*v[2]

	length := math32.Sqrt(x*x + y*y + z*z)
	if length == 0 {
		return [3]float32{x, y, z}
	}
	inv := 1 / length
	return [3]float32{x * inv, y * inv, z * inv}
}

// TriangleArea computes the area of the triangle spanned by three positions
// using half the magnitude of the edge cross product.
//
// Parameters:
//   - a, b, c: the triangle corners
//
// Returns:
//   - float32: the triangle area
func TriangleArea(a, b, c [3]float32) float32 {
	e1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	e2 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}

	cx := e1[1]*e2[2] - e1[2]*e2[1]
	cy := e1[2]*e2[0] - e1[0]*e2[2]
	cz := e1[0]*e2[1] - e1[1]*e2[0]

	return 0.5 * math32.Sqrt(cx*cx+cy*cy+cz*cz)
}

// NextPow2 returns the smallest power of two greater than or equal to v.
// Values below 1 return 1.
//
// Parameters:
//   - v: the value to round up
//
// Returns:
//   - int: the next power of two
func NextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// PrevPow2 returns the largest power of two less than or equal to v.
// Values below 1 return 1.
//
// Parameters:
//   - v: the value to round down
//
// Returns:
//   - int: the previous power of two
func PrevPow2(v int) int {
	if v <= 1 {
		return 1
	}
	p := 1
	for p<<1 <= v {
		p <<= 1
	}
	return p
}

// IsPow2 reports whether v is a positive power of two.
//
// Parameters:
//   - v: the value to test
//
// Returns:
//   - bool: true if v is a power of two
func IsPow2(v int) bool {
	return v > 0 && v&(v-1) == 0
}
