package data_test

import (
    . "github.com/PelionIoT/historiandb/data"

    . "github.com/onsi/ginkgo"
    . "github.com/onsi/gomega"
)

var _ = Describe("StatusCode", func() {
    Describe("#IsTransient", func() {
        It("Should classify only per-service failures as transient", func() {
            Expect(StatusRPCFail.IsTransient()).Should(BeTrue())
            Expect(StatusStorageFail.IsTransient()).Should(BeTrue())
            Expect(StatusDontOwnShard.IsTransient()).Should(BeTrue())

            Expect(StatusOK.IsTransient()).Should(BeFalse())
            Expect(StatusKeyMissing.IsTransient()).Should(BeFalse())
            Expect(StatusShardInProgress.IsTransient()).Should(BeFalse())
            Expect(StatusMissingTooMuchData.IsTransient()).Should(BeFalse())
            Expect(StatusBucketNotFinalized.IsTransient()).Should(BeFalse())
        })
    })

    Describe("#String", func() {
        It("Should name every status", func() {
            Expect(StatusOK.String()).Should(Equal("OK"))
            Expect(StatusKeyMissing.String()).Should(Equal("KEY_MISSING"))
            Expect(StatusBucketNotFinalized.String()).Should(Equal("BUCKET_NOT_FINALIZED"))
            Expect(StatusCode(100).String()).Should(Equal("UNKNOWN"))
        })
    })
})
