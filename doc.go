// The pinserver resource server
//
// Exposes the digital output pins and analog input channels of a single node
// (such as a Raspberry Pi in a greenhouse) to the network.
//
// Features
//
// - JSON actions over TCP (SET_PIN, GET_PIN, LIST_PINS, GET_CHNL, LIST_CNLS)
//
// - Per pin and per channel locking, so unrelated requests run in parallel
//
// - Pin values persisted to disk and restored on startup
//
// - Pin changes published over MQTT (retained)
//
// - Lightweight, small memory footprint (runs on the Raspberry Pi)
//
// Devices supported
//
// - Raspberry Pi GPIO (periph.io or /dev/gpiomem)
//
// - MCP3008 analog to digital converter over SPI
//
// - Arduino with relay module (http://arduino.cc/)
//
// - An in-memory stub for development away from the hardware
package pinserver
