package smoketest

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/veride/brandaudit/pkg/logger"
)

// Brand name fragments used to build plausible handles.
var (
	handleAdjectives = []string{
		"aurora", "peak", "urban", "coastal", "nordic",
		"velvet", "prime", "lush", "solar", "ember",
	}
	handleNouns = []string{
		"beauty", "fitness", "roast", "threads", "skin",
		"supply", "living", "labs", "wear", "goods",
	}
)

func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateHandles builds the handle list for a run. A FailureRatio
// fraction of handles is prefixed so the service cannot acquire the
// brand profile, exercising the failure path end to end.
func generateHandles(ctx context.Context, config *Config) []Submission {
	logger.Get().Info(ctx, "generating brand handles", logger.Int("numAudits", config.NumAudits))

	failing := int(float64(config.NumAudits) * config.FailureRatio)
	subs := make([]Submission, config.NumAudits)

	for i := range subs {
		adjective := handleAdjectives[randomInt(int64(len(handleAdjectives)))]
		noun := handleNouns[randomInt(int64(len(handleNouns)))]
		handle := adjective + noun + "." + strconv.Itoa(i)

		expectFail := i < failing
		if expectFail {
			handle = "missing." + handle
		}

		subs[i] = Submission{Handle: handle, ExpectFail: expectFail}
	}

	logger.Get().Info(ctx, "generated handles",
		logger.Int("count", len(subs)),
		logger.Int("expectedFailures", failing))
	return subs
}
