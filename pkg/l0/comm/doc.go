// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the sensor/actuator board firmware
// and the L1 controller over a serial port.
//
// Frames have a fixed size in each direction and are delimited by Start
// and End markers. The last byte of every frame is an XOR checksum.
// The L1 controller sends ControlFrame (7 bytes) and receives SensorFrame
// (17 bytes). There is no negotiation and no retransmission: a frame which
// fails validation is simply dropped and the next one is awaited.
//
// Producer: board firmware (SensorFrame), L1 controller (ControlFrame)
// Consumer: L1 controller (SensorFrame), board firmware (ControlFrame)
