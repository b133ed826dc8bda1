package pwire

/*
#include "shim.h"
*/
import "C"

import (
	"runtime/cgo"
)

func connFromHandle(h C.pwireshim_handle) *Connection {
	return cgo.Handle(h).Value().(*Connection)
}

//export goRegistryGlobal
func goRegistryGlobal(h C.pwireshim_handle, id C.uint32_t, kind C.int) {
	c := connFromHandle(h)
	props := c.takePending(uint32(id))
	c.send(Event{
		Kind:       EventGlobal,
		ID:         uint32(id),
		ObjectKind: kindFromC(kind),
		Properties: props,
		LinkState:  -1,
	})
}

//export goRegistryGlobalRemove
func goRegistryGlobalRemove(h C.pwireshim_handle, id C.uint32_t) {
	c := connFromHandle(h)
	c.takePending(uint32(id))
	c.send(Event{
		Kind:      EventGlobalRemove,
		ID:        uint32(id),
		LinkState: -1,
	})
}

//export goObjectInfo
func goObjectInfo(h C.pwireshim_handle, id C.uint32_t, kind C.int, linkState C.int) {
	c := connFromHandle(h)
	props := c.takePending(uint32(id))
	c.send(Event{
		Kind:       EventInfo,
		ID:         uint32(id),
		ObjectKind: kindFromC(kind),
		Properties: props,
		LinkState:  int(linkState),
	})
}

//export goDictItem
func goDictItem(h C.pwireshim_handle, id C.uint32_t, key *C.char, value *C.char) {
	c := connFromHandle(h)
	c.bufferDictItem(uint32(id), C.GoString(key), C.GoString(value))
}
