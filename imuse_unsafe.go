package imuse

import (
	"unsafe"
)

func driverSize(d *Driver) uint {
	memoryUsage := int(unsafe.Sizeof(*d))
	memoryUsage += cap(d.players.slots) * int(unsafe.Sizeof(soundPlayer{}))
	memoryUsage += (cap(d.players.free) + cap(d.players.order) + cap(d.scratchSlots)) * int(unsafe.Sizeof(int(0)))
	for _, config := range d.sounds {
		memoryUsage += int(unsafe.Sizeof(*config))
		memoryUsage += cap(config.Parts) * int(unsafe.Sizeof(PartConfig{}))
	}

	return uint(memoryUsage)
}
