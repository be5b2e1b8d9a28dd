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

func statusMain(_ *cobra.Command, _ []string) error {
	conn, err := control.Dial(control.SocketPath())
	if err != nil {
		return fmt.Errorf("unable to connect to minerd (is it running?): %w", err)
	}
	defer conn.Close()

	resp, err := control.NewControlClient(conn).Status(context.Background(), &structpb.Struct{})
	if err != nil {
		return grpcutil.PeelAwayRPCErrorLayer(err)
	}
	fields := resp.GetFields()
	fmt.Printf("crawling=%t progress=%.4f\n", fields["crawling"].GetBoolValue(), fields["progress"].GetNumberValue())
	return nil
}

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "report whether the pipeline is crawling and its progress",
	Args:  cobra.NoArgs,
	Run:   cmdutil.Mainify(statusMain),
}
