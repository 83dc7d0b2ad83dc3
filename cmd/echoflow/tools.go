package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/echoflow/tool"
)

type currentTimeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone name such as Europe/Paris. Defaults to UTC."`
}

var now = time.Now

func currentTime(_ context.Context, args currentTimeArgs) (string, error) {
	name := args.Timezone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return "", fmt.Errorf("unknown time zone %q", name)
	}
	return now().In(loc).Format(time.RFC1123Z), nil
}

// builtinTools are offered to the model with --tools.
func builtinTools() []*tool.Tool {
	return []*tool.Tool{
		tool.New("current_time", "Returns the current date and time in a time zone.", currentTime),
	}
}
