package dram_test

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/datarecording"
	"github.com/sarchlab/dramctrl/dram"
	"github.com/sarchlab/dramctrl/sim"
)

var _ = Describe("CommandTracer", func() {
	It("should record the issued commands", func() {
		engine := sim.NewSerialEngine()
		ctrl := dram.MakeBuilder().
			WithEngine(engine).
			WithGeometry(testGeometry()).
			WithTiming(testTiming()).
			Build("TracedCtrl")

		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()

		recorder := datarecording.NewWithDB(db)
		dram.NewCommandTracer(recorder, ctrl)

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		recorder.Flush()

		rows, err := datarecording.NewReaderWithDB(db).
			ReadAll("cmd_trace_TracedCtrl")
		Expect(err).ToNot(HaveOccurred())
		Expect(len(rows)).To(BeNumerically(">=", 2))
		Expect(rows[0]["Kind"]).To(Equal("ACT"))
		Expect(rows[1]["Kind"]).To(Equal("RD"))
	})
})
