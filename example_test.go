package wah_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/catalog"
)

// Example_build appends runs and raw bits, then reads them back.
func Example_build() {
	b := wah.New()
	b.Add0s(3)
	b.Add1s(2)
	b.Add([]byte{0x05}, 4) // bits 1, 0, 1, 0

	fmt.Println(b.Len(), b.Count(), b.ToSlice())
	// Output: 9 4 [3 4 5 7]
}

// Example_algebra combines bitmaps in place.
func Example_algebra() {
	a := wah.New()
	a.Add1s(10)

	c := wah.New()
	c.Add0s(5)
	c.Add1s(10)

	and := a.Clone()
	and.And(c)

	or := a.Clone()
	or.Or(c)

	not := c.Clone()
	not.Not()

	fmt.Println(and.ToSlice())
	fmt.Println(or.Count())
	fmt.Println(not.ToSlice())
	// Output:
	// [5 6 7 8 9]
	// 15
	// [0 1 2 3 4]
}

// Example_catalog stores two bitmaps and queries them by name.
func Example_catalog() {
	ctx := context.Background()

	cat, err := catalog.Open(ctx, blobstore.NewMemoryStore())
	if err != nil {
		log.Fatal(err)
	}
	defer cat.Close()

	paid := wah.New()
	paid.Add1s(100)

	banned := wah.New()
	banned.Add0s(90)
	banned.Add1s(10)

	for name, b := range map[string]*wah.Bitmap{"paid": paid, "banned": banned} {
		if err := cat.Put(ctx, name, b); err != nil {
			log.Fatal(err)
		}
	}

	if err := cat.Commit(ctx); err != nil {
		log.Fatal(err)
	}

	expr, err := catalog.ParseExpr("paid - banned")
	if err != nil {
		log.Fatal(err)
	}

	res, err := cat.Query(ctx, expr)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cat.Version(), res.Count())
	// Output: 1 90
}
