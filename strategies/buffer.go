package strategies

import "fmt"

// BufferPolicy returns the distance placed between a touched level and the
// entry or stop derived from it.
type BufferPolicy interface {
	Buffer(price float64) float64
	String() string
}

// FixedBuffer is an absolute price tick, used for equities.
type FixedBuffer float64

func (b FixedBuffer) Buffer(float64) float64 { return float64(b) }
func (b FixedBuffer) String() string          { return fmt.Sprintf("fixed(%g)", float64(b)) }

// PercentBuffer is a fraction of price (0.001 = 0.1%), used for crypto.
type PercentBuffer float64

func (b PercentBuffer) Buffer(price float64) float64 { return price * float64(b) }
func (b PercentBuffer) String() string               { return fmt.Sprintf("pct(%g)", float64(b)) }
