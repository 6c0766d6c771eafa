package main

import (
	"errors"
	"fmt"
)

var errWatchJSON = errors.New("--watch and --json cannot be used together")

func errStepsFailed(n int) error {
	return fmt.Errorf("%d step(s) failed", n)
}

var errNoRedis = errors.New("a redis address is required (--redis or redis.addr in the config)")
