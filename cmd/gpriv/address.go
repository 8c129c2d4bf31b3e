package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tos-network/gpriv/core/types"
	"github.com/tos-network/gpriv/privacy"
	"github.com/urfave/cli/v2"
)

type outputAddress struct {
	Address        string
	PrivacyGroupID string
}

var (
	senderFlag = &cli.StringFlag{
		Name:     "sender",
		Usage:    "address of the contract creator",
		Required: true,
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  "nonce",
		Usage: "nonce of the creating transaction",
	}
	groupFlag = &cli.StringFlag{
		Name:  "group",
		Usage: "base64 privacy group id",
	}
	privateFromFlag = &cli.StringFlag{
		Name:  "privatefrom",
		Usage: "base64 enclave key of the sender (legacy groups)",
	}
	privateForFlag = &cli.StringSliceFlag{
		Name:  "privatefor",
		Usage: "base64 enclave keys of the recipients (legacy groups)",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

var commandAddress = &cli.Command{
	Name:      "address",
	Usage:     "derive the address of a private contract",
	ArgsUsage: " ",
	Description: `
Computes the address of a contract created by a private transaction. The group
is given either explicitly with --group or, for legacy addressing, through the
--privatefrom and --privatefor keys.`,
	Flags: []cli.Flag{
		senderFlag,
		nonceFlag,
		groupFlag,
		privateFromFlag,
		privateForFlag,
		jsonFlag,
	},
	Action: func(ctx *cli.Context) error {
		sender := ctx.String(senderFlag.Name)
		if !common.IsHexAddress(sender) {
			return fmt.Errorf("invalid sender address %q", sender)
		}
		groupID, err := resolveGroupID(ctx)
		if err != nil {
			return err
		}
		address := privacy.PrivateContractAddress(common.HexToAddress(sender), ctx.Uint64(nonceFlag.Name), groupID)

		out := outputAddress{
			Address:        address.Hex(),
			PrivacyGroupID: base64.StdEncoding.EncodeToString(groupID),
		}
		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Address:         ", out.Address)
			fmt.Println("Privacy group id:", out.PrivacyGroupID)
		}
		return nil
	},
}

func resolveGroupID(ctx *cli.Context) ([]byte, error) {
	if ctx.IsSet(groupFlag.Name) {
		if ctx.IsSet(privateFromFlag.Name) || ctx.IsSet(privateForFlag.Name) {
			return nil, errors.New("--group can't be combined with --privatefrom or --privatefor")
		}
		return base64.StdEncoding.DecodeString(ctx.String(groupFlag.Name))
	}
	if !ctx.IsSet(privateFromFlag.Name) {
		return nil, errors.New("either --group or --privatefrom is required")
	}
	from, err := base64.StdEncoding.DecodeString(ctx.String(privateFromFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid --privatefrom: %v", err)
	}
	var recipients [][]byte
	for _, key := range ctx.StringSlice(privateForFlag.Name) {
		recipient, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("invalid --privatefor key %q: %v", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return types.LegacyPrivacyGroupID(from, recipients), nil
}

// mustPrintJSON prints the JSON encoding of the given object and
// exits the program with an error message when the marshaling fails.
func mustPrintJSON(jsonObject interface{}) {
	str, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal JSON object: %v", err))
	}
	fmt.Println(string(str))
}
