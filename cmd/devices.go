// =================================================================================
//
//		goxlrd - https://github.com/GoXLR-on-Linux/goxlrd
//
//	 goxlrd is a userspace driver and control daemon for the TC-Helicon GoXLR
//	 mixer, speaking its vendor USB protocol and recording its sampler audio
//
//		Copyright (c) 2026 the goxlrd contributors
//
//		Licensed under the Apache License, Version 2.0 (the "License");
//		you may not use this file except in compliance with the License.
//		You may obtain a copy of the License at
//
//		     http://www.apache.org/licenses/LICENSE-2.0
//
//		Unless required by applicable law or agreed to in writing, software
//		distributed under the License is distributed on an "AS IS" BASIS,
//		WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//		See the License for the specific language governing permissions and
//		limitations under the License.
//
// =================================================================================
package cmd

import (
	"fmt"

	"goxlrd/usb"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List GoXLR devices on the USB bus",

	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := usb.Scan()
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No GoXLR devices found")
			return nil
		}

		for _, info := range devices {
			model := "Full"
			if info.IsMini() {
				model = "Mini"
			}

			fmt.Printf("%s  GoXLR %s  %04x:%04x\n", info.Location(), model, info.VendorID, info.ProductID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
