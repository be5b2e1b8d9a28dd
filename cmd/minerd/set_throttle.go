package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/localmesh/fsminer/internal/cmdutil"
	"github.com/localmesh/fsminer/internal/control"
	"github.com/localmesh/fsminer/internal/grpcutil"
)

func setThrottleMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return fmt.Errorf("exactly one throttle value must be specified")
	}
	value, err := strconv.ParseFloat(arguments[0], 64)
	if err != nil {
		return fmt.Errorf("invalid throttle value %q: %w", arguments[0], err)
	}

	conn, err := control.Dial(control.SocketPath())
	if err != nil {
		return fmt.Errorf("unable to connect to minerd (is it running?): %w", err)
	}
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]any{"value": value})
	if err != nil {
		return err
	}

	if _, err := control.NewControlClient(conn).SetThrottle(context.Background(), req); err != nil {
		return grpcutil.PeelAwayRPCErrorLayer(err)
	}
	fmt.Println("OK")
	return nil
}

var setThrottleCommand = &cobra.Command{
	Use:   "set-throttle <value>",
	Short: "set the processing throttle between 0 and 1",
	Args:  cobra.ExactArgs(1),
	Run:   cmdutil.Mainify(setThrottleMain),
}
