package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gpriv/privacy"
	"github.com/urfave/cli/v2"
)

var commandPrivateSet = &cli.Command{
	Name:  "privateset",
	Usage: "inspect and build private args blobs",
	Subcommands: []*cli.Command{
		{
			Name:      "decode",
			Usage:     "print the chunks and the private set of a private args blob",
			ArgsUsage: "<hex args>",
			Flags:     []cli.Flag{jsonFlag},
			Action:    decodePrivateSet,
		},
		{
			Name:      "encode",
			Usage:     "build the private args blob appending the given private set",
			ArgsUsage: "<hex set>",
			Action:    encodePrivateSet,
		},
	},
}

func hexArg(ctx *cli.Context) ([]byte, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("expected exactly one hex argument")
	}
	arg := ctx.Args().First()
	if !strings.HasPrefix(arg, "0x") {
		arg = "0x" + arg
	}
	return hexutil.Decode(arg)
}

func decodePrivateSet(ctx *cli.Context) error {
	args, err := hexArg(ctx)
	if err != nil {
		return err
	}
	set, err := privacy.DecodePrivateSet(args)
	if err != nil {
		return err
	}
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(map[string]interface{}{"privateSet": hexutil.Bytes(set)})
		return nil
	}
	setChunks := (2*len(set) + privacy.ChunkLength - 1) / privacy.ChunkLength

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chunk", "Role", "Hex"})
	for i, chunk := range privacy.HexChunks(hexutil.Encode(args)[2:], privacy.ChunkLength) {
		var role string
		switch {
		case i == 0:
			role = "reserved"
		case i == 1:
			role = "count"
		case i < 2+setChunks:
			role = "set"
		default:
			role = "ignored"
		}
		table.Append([]string{strconv.Itoa(i), role, chunk})
	}
	table.Render()
	fmt.Println("Private set:", hexutil.Encode(set))
	return nil
}

func encodePrivateSet(ctx *cli.Context) error {
	set, err := hexArg(ctx)
	if err != nil {
		return err
	}
	fmt.Println(hexutil.Encode(privacy.EncodePrivateSet(set)))
	return nil
}
