// Package pump drives syringe pumps on a labbus segment.
//
// A Pump wraps a bus device handle with the pump profile of the runtime:
// syringe configuration, unit selection, dosage commands and drive
// control. Dosage commands are asynchronous; completion is observed by
// polling, for which the predicate methods IsPumping and
// IsCalibrationFinished plug directly into polling.Timer.WaitUntil.
//
// A typical dosage cycle:
//
//	session, err := bus.Open(rt, bus.Config{ConfigPath: "deviceconfig"})
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//	if err := session.Start(); err != nil {
//		return err
//	}
//
//	p, err := pump.ByName(session, "neMESYS_Low_Pressure_1_Pump")
//	if err != nil {
//		return err
//	}
//	if err := p.SetSyringe(pump.Syringe{InnerDiameterMM: 14.57, MaxStrokeMM: 60}); err != nil {
//		return err
//	}
//	if err := p.Aspirate(5, 1); err != nil {
//		return err
//	}
//	timer := polling.NewTimer(30 * time.Second)
//	if _, err := timer.WaitUntil(p.IsPumping, false); err != nil {
//		return err
//	}
//
// Pumps that carry a switching valve expose it through Valve.
package pump
