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

func removeDirectoryMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return fmt.Errorf("exactly one directory path must be specified")
	}

	conn, err := control.Dial(control.SocketPath())
	if err != nil {
		return fmt.Errorf("unable to connect to minerd (is it running?): %w", err)
	}
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]any{"path": arguments[0]})
	if err != nil {
		return err
	}

	if _, err := control.NewControlClient(conn).RemoveDirectory(context.Background(), req); err != nil {
		return grpcutil.PeelAwayRPCErrorLayer(err)
	}
	fmt.Println("OK")
	return nil
}

var removeDirectoryCommand = &cobra.Command{
	Use:   "remove-directory <path>",
	Short: "remove a directory from the mining pipeline",
	Args:  cobra.ExactArgs(1),
	Run:   cmdutil.Mainify(removeDirectoryMain),
}
