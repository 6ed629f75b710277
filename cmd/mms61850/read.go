package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/grid61850/mms/client"
	"github.com/grid61850/mms/model"
	"github.com/grid61850/mms/osi/mms/variant"
)

func parseFC(s string) (model.FC, error) {
	fc := model.FC(strings.ToUpper(s))
	switch fc {
	case model.FCStatus, model.FCMeasurement, model.FCSetpoint, model.FCSetting,
		model.FCSubstitute, model.FCConfig, model.FCDescription, model.FCControl,
		model.FCExtended:
		return fc, nil
	default:
		return "", fmt.Errorf("unknown functional constraint %q", s)
	}
}

// parseValue converts a command-line literal into a typed MMS value.
func parseValue(kind, raw string) (*variant.Value, error) {
	switch kind {
	case "bool":
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, err
		}
		return variant.NewBool(b), nil
	case "int":
		i, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, err
		}
		return variant.NewInt(i), nil
	case "uint":
		u, err := cast.ToUint64E(raw)
		if err != nil {
			return nil, err
		}
		return variant.NewUint(u), nil
	case "float32":
		f, err := cast.ToFloat32E(raw)
		if err != nil {
			return nil, err
		}
		return variant.NewFloat32(f), nil
	case "float64":
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, err
		}
		return variant.NewFloat64(f), nil
	case "string":
		return variant.NewVisibleString(raw), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", kind)
	}
}

func newReadCmd() *cobra.Command {
	flags := &connectFlags{}
	var fcName string
	cmd := &cobra.Command{
		Use:   "read <reference>",
		Short: "Read one data attribute",
		Example: `  mms61850 read -a 192.168.1.10:102 --fc MX simpleIOGenericIO/GGIO1.AnIn1.mag.f
  mms61850 read -a 192.168.1.10:102 --fc ST simpleIOGenericIO/GGIO1.SPCSO1.stVal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := parseFC(fcName)
			if err != nil {
				return err
			}
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				value, err := c.Read(ctx, args[0], fc)
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&fcName, "fc", "MX", "Functional constraint (ST, MX, SP, SG, SV, CF, DC, CO, EX)")
	return cmd
}

func newWriteCmd() *cobra.Command {
	flags := &connectFlags{}
	var fcName, valueType string
	cmd := &cobra.Command{
		Use:   "write <reference> <value>",
		Short: "Write one data attribute",
		Example: `  mms61850 write -a 192.168.1.10:102 --fc SP --type float32 LD/GGIO1.AnOut1.setMag.f 1.5
  mms61850 write -a 192.168.1.10:102 --fc SP --type bool LD/GGIO1.SPCSO1.stVal true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := parseFC(fcName)
			if err != nil {
				return err
			}
			value, err := parseValue(valueType, args[1])
			if err != nil {
				return err
			}
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				return c.Write(ctx, args[0], fc, value)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&fcName, "fc", "SP", "Functional constraint (ST, MX, SP, SG, SV, CF, DC, CO, EX)")
	cmd.Flags().StringVar(&valueType, "type", "string", "Value type: bool, int, uint, float32, float64, string")
	return cmd
}
