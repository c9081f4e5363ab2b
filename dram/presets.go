package dram

import (
	"fmt"
	"sort"
)

// The presets mirror common device grades. Timings are the datasheet
// nanosecond values converted to command-clock cycles, rounding up.

// DDR3_1600_8x8 is a 64-bit DDR3-1600 channel built from x8 devices.
func DDR3_1600_8x8() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     64,
			BurstLength:  8,
			NumChannel:   1,
			NumRank:      2,
			BanksPerRank: 8,
			NumRow:       65536,
			NumCol:       1024,
		}).
		WithTiming(DeviceTiming{
			TCK:    1.25,
			TBURST: 4,
			TRCD:   11, TCL: 11, TRP: 11, TRAS: 28,
			TWR: 12, TWTR: 6, TRTW: 2, TRTP: 6, TCS: 2,
			TRRD: 5, TXAW: 24, ActivationLimit: 4,
			TRFC: 208, TREFI: 6240,
			TXP: 5, TXPDLL: 20, TXS: 216, TXSDLL: 512, TCKESR: 4,
			HasDLL: true,
		}).
		WithCurrentDraw(CurrentDraw{
			IDD0: 55, IDD2N: 32, IDD3N: 38,
			IDD2P1: 32, IDD3P1: 38,
			IDD4R: 157, IDD4W: 125,
			IDD5: 235, IDD6: 20,
			VDD: 1.5,
		}).
		WithPipelineLatency(8, 8)
}

// DDR3_2133_8x8 is a 64-bit DDR3-2133 channel built from x8 devices.
func DDR3_2133_8x8() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     64,
			BurstLength:  8,
			NumChannel:   1,
			NumRank:      2,
			BanksPerRank: 8,
			NumRow:       65536,
			NumCol:       1024,
		}).
		WithTiming(DeviceTiming{
			TCK:    0.938,
			TBURST: 4,
			TRCD:   14, TCL: 14, TRP: 14, TRAS: 36,
			TWR: 16, TWTR: 8, TRTW: 2, TRTP: 8, TCS: 3,
			TRRD: 6, TXAW: 27, ActivationLimit: 4,
			TRFC: 278, TREFI: 8316,
			TXP: 7, TXPDLL: 26, TXS: 288, TXSDLL: 512, TCKESR: 6,
			HasDLL: true,
		}).
		WithCurrentDraw(CurrentDraw{
			IDD0: 70, IDD2N: 37, IDD3N: 44,
			IDD2P1: 37, IDD3P1: 44,
			IDD4R: 180, IDD4W: 147,
			IDD5: 265, IDD6: 20,
			VDD: 1.5,
		}).
		WithPipelineLatency(11, 11)
}

// DDR4_2400_8x8 is a 64-bit DDR4-2400 channel with four bank groups.
func DDR4_2400_8x8() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     64,
			BurstLength:  8,
			NumChannel:   1,
			NumRank:      1,
			NumBankGroup: 4,
			BanksPerRank: 16,
			NumRow:       65536,
			NumCol:       1024,
		}).
		WithTiming(DeviceTiming{
			TCK:    0.833,
			TBURST: 4, TCCDL: 6,
			TRCD: 17, TCL: 17, TRP: 17, TRAS: 39,
			TWR: 18, TWTR: 9, TRTW: 2, TRTP: 9, TCS: 2,
			TRRD: 4, TRRDL: 6, TXAW: 26, ActivationLimit: 4,
			TRFC: 421, TREFI: 9364,
			TXP: 8, TXS: 433, TCKESR: 7,
			HasDLL: true,
		}).
		WithCurrentDraw(CurrentDraw{
			IDD0: 43, IDD02: 3,
			IDD2N: 34, IDD2N2: 3,
			IDD3N: 38, IDD3N2: 3,
			IDD2P1: 25, IDD3P1: 32,
			IDD4R: 135, IDD4R2: 3,
			IDD4W: 123, IDD4W2: 3,
			IDD5: 250, IDD52: 3,
			IDD6: 30, IDD62: 1,
			VDD: 1.2, VDD2: 2.5,
		}).
		WithPipelineLatency(12, 12)
}

// LPDDR2_S4_1066_1x32 is a single 32-bit LPDDR2-S4 device channel.
func LPDDR2_S4_1066_1x32() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     32,
			BurstLength:  8,
			NumChannel:   1,
			NumRank:      1,
			BanksPerRank: 8,
			NumRow:       65536,
			NumCol:       256,
		}).
		WithTiming(DeviceTiming{
			TCK:    1.876,
			TBURST: 4,
			TRCD:   8, TCL: 8, TRP: 8, TRAS: 23,
			TWR: 8, TWTR: 4, TRTW: 2, TRTP: 4, TCS: 2,
			TRRD: 6, TXAW: 27, ActivationLimit: 4,
			TRFC: 70, TREFI: 2079,
			TXP: 4, TXS: 75, TCKESR: 8,
		}).
		WithCurrentDraw(CurrentDraw{
			IDD0: 27, IDD02: 11,
			IDD2N: 4, IDD2N2: 3,
			IDD3N: 8, IDD3N2: 6,
			IDD2P1: 0.8, IDD3P1: 1.2,
			IDD4R: 3, IDD4R2: 220,
			IDD4W: 3, IDD4W2: 190,
			IDD5: 28, IDD52: 150,
			IDD6: 0.5, IDD62: 1.8,
			VDD: 1.8, VDD2: 1.2,
		}).
		WithPipelineLatency(6, 6)
}

// LPDDR3_1600_1x32 is a single 32-bit LPDDR3 device channel.
func LPDDR3_1600_1x32() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     32,
			BurstLength:  8,
			NumChannel:   1,
			NumRank:      1,
			BanksPerRank: 8,
			NumRow:       16384,
			NumCol:       1024,
		}).
		WithTiming(DeviceTiming{
			TCK:    1.25,
			TBURST: 4,
			TRCD:   15, TCL: 12, TRP: 15, TRAS: 34,
			TWR: 12, TWTR: 6, TRTW: 2, TRTP: 6, TCS: 2,
			TRRD: 8, TXAW: 40, ActivationLimit: 4,
			TRFC: 104, TREFI: 3120,
			TXP: 6, TXS: 112, TCKESR: 12,
		}).
		WithCurrentDraw(CurrentDraw{
			IDD0: 8, IDD02: 60,
			IDD2N: 0.8, IDD2N2: 26,
			IDD3N: 2, IDD3N2: 34,
			IDD2P1: 0.8, IDD3P1: 1.4,
			IDD4R: 2, IDD4R2: 230,
			IDD4W: 2, IDD4W2: 190,
			IDD5: 28, IDD52: 150,
			IDD6: 0.5, IDD62: 1.8,
			VDD: 1.8, VDD2: 1.2,
		}).
		WithPipelineLatency(8, 8)
}

// WideIO_200_1x128 is a single 128-bit WideIO channel. No current numbers
// are published for it, so the energy model reports zero.
func WideIO_200_1x128() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     128,
			BurstLength:  4,
			NumChannel:   1,
			NumRank:      1,
			BanksPerRank: 4,
			NumRow:       8192,
			NumCol:       256,
		}).
		WithTiming(DeviceTiming{
			TCK:    5,
			TBURST: 4,
			TRCD:   4, TCL: 4, TRP: 4, TRAS: 9,
			TWR: 3, TWTR: 3, TRTW: 2, TRTP: 3, TCS: 2,
			TRRD: 2, TXAW: 10, ActivationLimit: 2,
			TRFC: 42, TREFI: 780,
			TXP: 2, TXS: 24, TCKESR: 3,
		}).
		WithPipelineLatency(2, 2)
}

// HMCVault models one vault of a Hybrid Memory Cube stack: a narrow, fast
// channel with small rows, a closed-page access pattern, and no activation
// window.
func HMCVault() Builder {
	return MakeBuilder().
		WithGeometry(DeviceGeometry{
			BusWidth:     32,
			BurstLength:  8,
			NumChannel:   16,
			NumRank:      1,
			BanksPerRank: 16,
			NumRow:       16384,
			NumCol:       64,
		}).
		WithTiming(DeviceTiming{
			TCK:    0.8,
			TBURST: 4,
			TRCD:   13, TCL: 13, TRP: 10, TRAS: 27,
			TWR: 10, TWTR: 6, TRTW: 2, TRTP: 7, TCS: 2,
			TRRD: 5, TXAW: 21, ActivationLimit: 0,
			TRFC: 104, TREFI: 4875,
			TXP: 10, TXS: 82, TCKESR: 4,
		}).
		WithPagePolicy(PagePolicyClose).
		WithAddressMapping(AddrMapRoCoRaBaCh).
		WithPipelineLatency(5, 5)
}

var presets = map[string]func() Builder{
	"DDR3_1600_8x8":       DDR3_1600_8x8,
	"DDR3_2133_8x8":       DDR3_2133_8x8,
	"DDR4_2400_8x8":       DDR4_2400_8x8,
	"LPDDR2_S4_1066_1x32": LPDDR2_S4_1066_1x32,
	"LPDDR3_1600_1x32":    LPDDR3_1600_1x32,
	"WideIO_200_1x128":    WideIO_200_1x128,
	"HMCVault":            HMCVault,
}

// PresetNames lists the available preset names in order.
func PresetNames() []string {
	var names []string
	for name := range presets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// PresetByName returns the preset builder with the given name.
func PresetByName(name string) (Builder, error) {
	preset, ok := presets[name]
	if !ok {
		return Builder{}, fmt.Errorf("dram: unknown preset %q", name)
	}

	return preset(), nil
}

// ParsePagePolicy converts a policy name to a PagePolicy.
func ParsePagePolicy(name string) (PagePolicy, error) {
	switch name {
	case "open":
		return PagePolicyOpen, nil
	case "open_adaptive":
		return PagePolicyOpenAdaptive, nil
	case "close":
		return PagePolicyClose, nil
	case "close_adaptive":
		return PagePolicyCloseAdaptive, nil
	}

	return 0, fmt.Errorf("dram: unknown page policy %q", name)
}

// ParseSchedulingPolicy converts a policy name to a SchedulingPolicy.
func ParseSchedulingPolicy(name string) (SchedulingPolicy, error) {
	switch name {
	case "fcfs":
		return SchedFCFS, nil
	case "frfcfs":
		return SchedFRFCFS, nil
	}

	return 0, fmt.Errorf("dram: unknown scheduling policy %q", name)
}

// ParseAddressMapping converts a mapping name to an AddressMapping.
func ParseAddressMapping(name string) (AddressMapping, error) {
	switch name {
	case "RoRaBaChCo":
		return AddrMapRoRaBaChCo, nil
	case "RoRaBaCoCh":
		return AddrMapRoRaBaCoCh, nil
	case "RoCoRaBaCh":
		return AddrMapRoCoRaBaCh, nil
	}

	return 0, fmt.Errorf("dram: unknown address mapping %q", name)
}
