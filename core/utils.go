package core

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// GetSeed receives a seed value for random number generation from the PAIRMATCH_SEED environment variable.
func GetSeed() int64 {
	seedStr := os.Getenv("PAIRMATCH_SEED")
	if seedStr != "" {
		if seed, err := strconv.ParseInt(seedStr, 10, 64); err == nil {
			log.Debug().Msgf("Using seed from PAIRMATCH_SEED value: %d", seed)
			return seed
		}
		log.Warn().Msgf("Failed to parse PAIRMATCH_SEED value: %s", seedStr)
	}

	seed := time.Now().UnixNano()
	log.Debug().Msgf("Using current time as seed: %d", seed)
	return seed
}

// GetWorkers returns the worker count from PAIRMATCH_WORKERS, or the number of CPUs.
func GetWorkers() int {
	if env := os.Getenv("PAIRMATCH_WORKERS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
		log.Warn().Msgf("Failed to parse PAIRMATCH_WORKERS value: %s", env)
	}
	return runtime.NumCPU()
}
