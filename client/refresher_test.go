package client_test

import (
    "time"

    . "github.com/PelionIoT/historiandb/client"
    "github.com/PelionIoT/historiandb/shared"

    . "github.com/onsi/ginkgo"
    . "github.com/onsi/gomega"
)

var _ = Describe("Client read service refreshing", func() {
    newReaderConfig := func() shared.ClientConfig {
        config := newTestConfig()
        config.WriterThreadsPerService = 0
        config.ReadServicesUpdateInterval = time.Millisecond * 20

        return config
    }

    mockFactory := func(serviceName string, shadow bool) (NetworkClient, error) {
        return NewMockNetworkClient(serviceName), nil
    }

    It("Should pick up the directory's read services at startup", func() {
        directory := NewMockDirectoryAdapter()
        directory.setReadServices([]string{ "east", "west" })

        client, err := NewClient(newReaderConfig(), directory, mockFactory)

        Expect(err).Should(BeNil())

        defer client.Stop()

        Expect(client.ReadServiceNames()).Should(Equal([]string{ "east", "west" }))
        Expect(client.GetMaxNumShards()).Should(Equal(int64(8)))
    })

    It("Should swap in a new service set when the directory changes", func() {
        directory := NewMockDirectoryAdapter()
        directory.setReadServices([]string{ "east" })

        client, err := NewClient(newReaderConfig(), directory, mockFactory)

        Expect(err).Should(BeNil())

        defer client.Stop()

        Expect(client.ReadServiceNames()).Should(Equal([]string{ "east" }))

        directory.setReadServices([]string{ "east", "west" })

        Eventually(func() []string {
            return client.ReadServiceNames()
        }, time.Second, time.Millisecond * 10).Should(Equal([]string{ "east", "west" }))
    })

    It("Should filter out services the directory does not recognize", func() {
        directory := NewMockDirectoryAdapter()
        directory.setReadServices([]string{ "east" })

        client, err := NewClient(newReaderConfig(), directory, mockFactory)

        Expect(err).Should(BeNil())

        defer client.Stop()

        directory.setReadServices([]string{ "east", "bogus" })
        directory.setValidReadService("bogus", false)

        // Give the refresher a few cycles to react, the bogus service must
        // never make it into the active set.
        Consistently(func() []string {
            return client.ReadServiceNames()
        }, time.Millisecond * 200, time.Millisecond * 20).Should(Equal([]string{ "east" }))
    })

    It("Should fall back to the nearest read service when no listed service is usable", func() {
        directory := NewMockDirectoryAdapter()
        directory.setReadServices([]string{ "stale" })
        directory.setValidReadService("stale", false)
        directory.setNearestReadService("near")

        config := newReaderConfig()
        config.ReadServicesUpdateInterval = shared.NoReadServicesUpdates

        client, err := NewClient(config, directory, mockFactory)

        Expect(err).Should(BeNil())

        defer client.Stop()

        Expect(client.ReadServiceNames()).Should(Equal([]string{ "near" }))
    })

    It("Should leave the active set alone when the directory fails", func() {
        directory := NewMockDirectoryAdapter()
        directory.setReadServices([]string{ "east" })

        client, err := NewClient(newReaderConfig(), directory, mockFactory)

        Expect(err).Should(BeNil())

        defer client.Stop()

        directory.setReadServicesError(EDirectoryDown)

        Consistently(func() []string {
            return client.ReadServiceNames()
        }, time.Millisecond * 200, time.Millisecond * 20).Should(Equal([]string{ "east" }))
    })
})
