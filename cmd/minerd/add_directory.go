package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/localmesh/fsminer/internal/cmdutil"
	"github.com/localmesh/fsminer/internal/control"
	"github.com/localmesh/fsminer/internal/grpcutil"
)

var addDirectoryConfiguration struct {
	recurse bool
}

func addDirectoryMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return fmt.Errorf("exactly one directory path must be specified")
	}

	conn, err := control.Dial(control.SocketPath())
	if err != nil {
		return fmt.Errorf("unable to connect to minerd (is it running?): %w", err)
	}
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]any{
		"path":    arguments[0],
		"recurse": addDirectoryConfiguration.recurse,
	})
	if err != nil {
		return err
	}

	if _, err := control.NewControlClient(conn).AddDirectory(context.Background(), req); err != nil {
		return grpcutil.PeelAwayRPCErrorLayer(err)
	}
	fmt.Println("OK")
	return nil
}

var addDirectoryCommand = &cobra.Command{
	Use:   "add-directory <path>",
	Short: "add a directory to the mining pipeline",
	Args:  cobra.ExactArgs(1),
	Run:   cmdutil.Mainify(addDirectoryMain),
}

func init() {
	flags := addDirectoryCommand.Flags()
	flags.BoolVar(&addDirectoryConfiguration.recurse, "recurse", true, "recurse into subdirectories")
}
