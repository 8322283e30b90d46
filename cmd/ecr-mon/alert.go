// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mail "gopkg.in/gomail.v2"

	"github.com/go-ec/ecr/internal/grid"
)

// alerter watches a set of EC registers across sweeps and raises an
// alert whenever one of them changes value.
type alerter struct {
	regs   []uint8
	freq   time.Duration
	last   map[uint8]uint8
	alerts map[uint8]int
}

func newAlerter(regs []uint8, freq time.Duration) *alerter {
	return &alerter{
		regs:   regs,
		freq:   freq,
		last:   make(map[uint8]uint8, len(regs)),
		alerts: make(map[uint8]int, len(regs)),
	}
}

func (al *alerter) check(cells *grid.Sweep) {
	for _, reg := range al.regs {
		cell := cells[reg]
		if !cell.OK {
			continue
		}
		old, seen := al.last[reg]
		al.last[reg] = cell.Value
		if !seen || old == cell.Value {
			continue
		}
		al.alert(reg, old, cell.Value)
	}
}

func (al *alerter) alert(reg, old, cur uint8) {
	log.Printf("register 0x%02X changed: 0x%02X -> 0x%02X", reg, old, cur)
	al.alerts[reg]++

	const maxAlerts = 5
	if al.alerts[reg] < maxAlerts {
		al.alertMail(reg, old, cur)
	}
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func (al *alerter) alertMail(reg, old, cur uint8) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		alertMailTgts == nil || len(alertMailTgts) == 0 {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[ecr-mon] register alert: 0x%02X", reg))
	msg.SetBody("text/plain", fmt.Sprintf("register: 0x%02X\nold: 0x%02X\nnew: 0x%02X\nfreq: %v",
		reg, old, cur, al.freq,
	))

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(msg)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
