// gen-testdata emits a synthetic postcode,lat,lon CSV on stdout, for
// benchmarks and size experiments.  The output is deterministic for a
// given seed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
)

var outwardLetters = "ABCDEFGHIJKLMNOPRSTUWYZ"

func main() {
	n := flag.Int("n", 1000000, "number of rows to generate")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	w := bufio.NewWriterSize(os.Stdout, 4*1024*1024)
	defer func() {
		_ = w.Flush()
	}()

	seen := make(map[string]struct{}, *n)
	for len(seen) < *n {
		area := string(outwardLetters[rng.Intn(len(outwardLetters))])
		if rng.Intn(2) == 0 {
			area += string(outwardLetters[rng.Intn(len(outwardLetters))])
		}
		outward := fmt.Sprintf("%s%d", area, rng.Intn(20))

		code := fmt.Sprintf("%s %d%c%c", outward,
			rng.Intn(10),
			'A'+rune(rng.Intn(26)),
			'A'+rune(rng.Intn(26)))
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		// roughly the UK bounding box
		lat := 49.9 + rng.Float64()*10.9
		lon := -8.2 + rng.Float64()*9.9
		fmt.Fprintf(w, "%s,%.5f,%.5f\n", code, lat, lon)
	}
}
